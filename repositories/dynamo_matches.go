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

// DynamoMatchRepository is the match ledger backed by the Matches table
type DynamoMatchRepository struct {
	Dynamo *DynamoService
}

func matchKey(matchID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"matchId": utils.StringAttr(matchID)}
}

// CreateMatch writes the match and its pair lock in one transaction.
func (r DynamoMatchRepository) CreateMatch(ctx context.Context, match models.Match) error {
	item, err := attributevalue.MarshalMap(match)
	if err != nil {
		return fmt.Errorf("failed to marshal match: %w", err)
	}
	err = r.Dynamo.TransactWrite(ctx, []types.TransactWriteItem{
		r.Dynamo.acquireLock(match.PairKey, lockTypeMatch, match.MatchID),
		{Put: &types.Put{TableName: aws.String(r.Dynamo.Table(models.MatchesTable)), Item: item}},
	})
	if isConditionFailure(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

func (r DynamoMatchRepository) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	item, err := r.Dynamo.GetItem(ctx, models.MatchesTable, matchKey(matchID))
	if err != nil {
		return nil, err
	}
	var match models.Match
	if err := attributevalue.UnmarshalMap(item, &match); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match: %w", err)
	}
	return &match, nil
}

func (r DynamoMatchRepository) FindActiveMatch(ctx context.Context, userA, userB string) (*models.Match, error) {
	holder, err := r.Dynamo.lockHolder(ctx, utils.PairKey(userA, userB), lockTypeMatch)
	if err != nil || holder == "" {
		return nil, err
	}
	match, err := r.GetMatch(ctx, holder)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil || !utils.SamePair(match.User1Handle, match.User2Handle, userA, userB) {
		return nil, err
	}
	return match, nil
}

// ListMatchesForUser queries both party indexes, as a user can sit on either side.
func (r DynamoMatchRepository) ListMatchesForUser(ctx context.Context, userID string) ([]models.Match, error) {
	var matches []models.Match
	for _, index := range []struct{ name, attr string }{
		{models.User1HandleIndex, "user1Handle"},
		{models.User2HandleIndex, "user2Handle"},
	} {
		items, err := r.Dynamo.QueryAll(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.Dynamo.Table(models.MatchesTable)),
			IndexName:                 aws.String(index.name),
			KeyConditionExpression:    aws.String("#user = :userHandle"),
			ExpressionAttributeNames:  map[string]string{"#user": index.attr},
			ExpressionAttributeValues: map[string]types.AttributeValue{":userHandle": utils.StringAttr(userID)},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch matches: %w", err)
		}
		var page []models.Match
		if err := attributevalue.UnmarshalListOfMaps(items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal matches: %w", err)
		}
		matches = append(matches, page...)
	}
	return lo.UniqBy(matches, func(m models.Match) string { return m.MatchID }), nil
}

// UpdateMatchStatus conditionally moves a match from one status to another. In
// the same transaction it frees the pair lock when the new status is terminal,
// and takes it back when the match leaves a terminal status.
func (r DynamoMatchRepository) UpdateMatchStatus(ctx context.Context, matchID, from, to string) (*models.Match, error) {
	match, err := r.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	items := []types.TransactWriteItem{
		statusUpdate(r.Dynamo.Table(models.MatchesTable), matchKey(matchID), from, to, now),
	}
	switch {
	case !models.IsActiveStatus(to):
		items = append(items, r.Dynamo.releaseLock(match.PairKey, lockTypeMatch, matchID))
	case !models.IsActiveStatus(from):
		items = append(items, r.Dynamo.acquireLock(match.PairKey, lockTypeMatch, matchID))
	}
	err = r.Dynamo.TransactWrite(ctx, items)
	if isConditionFailure(err) {
		return nil, ErrStatusConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update match status: %w", err)
	}
	match.Status = to
	match.UpdatedAt = now
	return match, nil
}

// DeleteMatch removes a match and its lock. Both deletes are idempotent.
func (r DynamoMatchRepository) DeleteMatch(ctx context.Context, matchID string) error {
	match, err := r.GetMatch(ctx, matchID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := r.Dynamo.DeleteItem(ctx, models.MatchesTable, matchKey(matchID), "", nil, false); err != nil {
		return err
	}
	return r.Dynamo.dropLock(ctx, match.PairKey, lockTypeMatch, matchID)
}

// statusUpdate is the conditional "SET status" step shared by matches and requests.
func statusUpdate(table string, key map[string]types.AttributeValue, from, to string, at time.Time) types.TransactWriteItem {
	return types.TransactWriteItem{
		Update: &types.Update{
			TableName:           aws.String(table),
			Key:                 key,
			UpdateExpression:    aws.String("SET #status = :to, #updatedAt = :updatedAt"),
			ConditionExpression: aws.String("#status = :from"),
			ExpressionAttributeNames: map[string]string{
				"#status":    "status",
				"#updatedAt": "updatedAt",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":to":        utils.StringAttr(to),
				":from":      utils.StringAttr(from),
				":updatedAt": utils.StringAttr(at.Format(time.RFC3339Nano)),
			},
		},
	}
}
