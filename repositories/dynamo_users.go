package repositories

import (
	"context"
	"fmt"

	"murmur_server/models"
	"murmur_server/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoUserRepository is the identity store backed by the Users table
type DynamoUserRepository struct {
	Dynamo *DynamoService
}

func (r DynamoUserRepository) FindByID(ctx context.Context, userID string) (*models.UserProfile, error) {
	item, err := r.Dynamo.GetItem(ctx, models.UserProfilesTable, map[string]types.AttributeValue{
		"userId": utils.StringAttr(userID),
	})
	if err != nil {
		return nil, err
	}
	var profile models.UserProfile
	if err := attributevalue.UnmarshalMap(item, &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return &profile, nil
}

// FindMany queries the gender GSI when a gender is given and scans otherwise.
func (r DynamoUserRepository) FindMany(ctx context.Context, filter models.IdentityFilter) ([]models.UserProfile, error) {
	names := map[string]string{}
	values := map[string]types.AttributeValue{}
	filterExpression := ""
	if filter.VerifiedOnly {
		names["#verified"] = "verified"
		values[":verified"] = &types.AttributeValueMemberBOOL{Value: true}
		filterExpression = "#verified = :verified"
	}

	var items []map[string]types.AttributeValue
	var err error
	if filter.Gender != "" {
		names["#gender"] = "gender"
		values[":gender"] = utils.StringAttr(filter.Gender)
		input := &dynamodb.QueryInput{
			TableName:                 aws.String(r.Dynamo.Table(models.UserProfilesTable)),
			IndexName:                 aws.String(models.GenderIndex),
			KeyConditionExpression:    aws.String("#gender = :gender"),
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
		}
		if filterExpression != "" {
			input.FilterExpression = aws.String(filterExpression)
		}
		items, err = r.Dynamo.QueryAll(ctx, input)
	} else {
		items, err = r.Dynamo.ScanWithFilter(ctx, models.UserProfilesTable, filterExpression, names, values)
	}
	if err != nil {
		return nil, err
	}

	var profiles []models.UserProfile
	if err := attributevalue.UnmarshalListOfMaps(items, &profiles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profiles: %w", err)
	}
	return profiles, nil
}

func (r DynamoUserRepository) Put(ctx context.Context, profile models.UserProfile) error {
	item, err := attributevalue.MarshalMap(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	return r.Dynamo.PutItem(ctx, models.UserProfilesTable, item)
}
