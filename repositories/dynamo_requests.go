package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"murmur_server/models"
	"murmur_server/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/samber/lo"
)

// DynamoRequestRepository is the request mailbox backed by the MessageRequests table
type DynamoRequestRepository struct {
	Dynamo *DynamoService
}

func requestKey(requestID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"requestId": utils.StringAttr(requestID)}
}

func (r DynamoRequestRepository) CreateRequest(ctx context.Context, request models.MessageRequest) error {
	item, err := attributevalue.MarshalMap(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	err = r.Dynamo.TransactWrite(ctx, []types.TransactWriteItem{
		r.Dynamo.acquireLock(request.PairKey, lockTypeRequest, request.RequestID),
		{Put: &types.Put{TableName: aws.String(r.Dynamo.Table(models.MessageRequestsTable)), Item: item}},
	})
	if isConditionFailure(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return nil
}

func (r DynamoRequestRepository) GetRequest(ctx context.Context, requestID string) (*models.MessageRequest, error) {
	item, err := r.Dynamo.GetItem(ctx, models.MessageRequestsTable, requestKey(requestID))
	if err != nil {
		return nil, err
	}
	var request models.MessageRequest
	if err := attributevalue.UnmarshalMap(item, &request); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request: %w", err)
	}
	return &request, nil
}

func (r DynamoRequestRepository) FindActiveRequest(ctx context.Context, userA, userB string) (*models.MessageRequest, error) {
	holder, err := r.Dynamo.lockHolder(ctx, utils.PairKey(userA, userB), lockTypeRequest)
	if err != nil || holder == "" {
		return nil, err
	}
	request, err := r.GetRequest(ctx, holder)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil || !utils.SamePair(request.SenderHandle, request.RecipientHandle, userA, userB) {
		return nil, err
	}
	return request, nil
}

func (r DynamoRequestRepository) ListRequestsForUser(ctx context.Context, userID string) ([]models.MessageRequest, error) {
	var requests []models.MessageRequest
	for _, index := range []struct{ name, attr string }{
		{models.SenderHandleIndex, "senderHandle"},
		{models.RecipientHandleIndex, "recipientHandle"},
	} {
		items, err := r.Dynamo.QueryAll(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.Dynamo.Table(models.MessageRequestsTable)),
			IndexName:                 aws.String(index.name),
			KeyConditionExpression:    aws.String("#user = :userHandle"),
			ExpressionAttributeNames:  map[string]string{"#user": index.attr},
			ExpressionAttributeValues: map[string]types.AttributeValue{":userHandle": utils.StringAttr(userID)},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch requests: %w", err)
		}
		var page []models.MessageRequest
		if err := attributevalue.UnmarshalListOfMaps(items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal requests: %w", err)
		}
		requests = append(requests, page...)
	}
	return lo.UniqBy(requests, func(m models.MessageRequest) string { return m.RequestID }), nil
}

func (r DynamoRequestRepository) UpdateRequestStatus(ctx context.Context, requestID, from, to string) (*models.MessageRequest, error) {
	request, err := r.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	items := []types.TransactWriteItem{
		statusUpdate(r.Dynamo.Table(models.MessageRequestsTable), requestKey(requestID), from, to, now),
	}
	switch {
	case !models.IsActiveStatus(to):
		items = append(items, r.Dynamo.releaseLock(request.PairKey, lockTypeRequest, requestID))
	case !models.IsActiveStatus(from):
		items = append(items, r.Dynamo.acquireLock(request.PairKey, lockTypeRequest, requestID))
	}
	err = r.Dynamo.TransactWrite(ctx, items)
	if isConditionFailure(err) {
		return nil, ErrStatusConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update request status: %w", err)
	}
	request.Status = to
	request.UpdatedAt = now
	return request, nil
}

func (r DynamoRequestRepository) DeleteRequest(ctx context.Context, requestID string) error {
	request, err := r.GetRequest(ctx, requestID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := r.Dynamo.DeleteItem(ctx, models.MessageRequestsTable, requestKey(requestID), "", nil, false); err != nil {
		return err
	}
	return r.Dynamo.dropLock(ctx, request.PairKey, lockTypeRequest, requestID)
}
