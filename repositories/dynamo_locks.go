package repositories

import (
	"context"
	"errors"

	"murmur_server/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PairLocksTable holds one item per (canonical pair, record kind) while the
// pair has an active record. It is the uniqueness constraint DynamoDB lacks.
const PairLocksTable = "PairLocks"

const (
	lockTypeMatch   = "MATCH"
	lockTypeRequest = "REQUEST"
	lockTypeRoom    = "ROOM"
)

func lockKey(pairKey, lockType string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pairKey":  utils.StringAttr(pairKey),
		"lockType": utils.StringAttr(lockType),
	}
}

// acquireLock is the transaction step that fails when the pair is already held.
func (ds *DynamoService) acquireLock(pairKey, lockType, refID string) types.TransactWriteItem {
	item := lockKey(pairKey, lockType)
	item["refId"] = utils.StringAttr(refID)
	return types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(ds.Table(PairLocksTable)),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(pairKey)"),
		},
	}
}

// releaseLock is the transaction step that frees the pair if refID still holds it.
func (ds *DynamoService) releaseLock(pairKey, lockType, refID string) types.TransactWriteItem {
	return types.TransactWriteItem{
		Delete: &types.Delete{
			TableName:           aws.String(ds.Table(PairLocksTable)),
			Key:                 lockKey(pairKey, lockType),
			ConditionExpression: aws.String("attribute_not_exists(pairKey) OR refId = :refId"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":refId": utils.StringAttr(refID),
			},
		},
	}
}

// lockHolder returns the id holding the pair, or "" when it is free.
func (ds *DynamoService) lockHolder(ctx context.Context, pairKey, lockType string) (string, error) {
	item, err := ds.GetItem(ctx, PairLocksTable, lockKey(pairKey, lockType))
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return utils.ExtractString(item, "refId"), nil
}

// dropLock deletes the pair lock outside a transaction, used by compensation.
func (ds *DynamoService) dropLock(ctx context.Context, pairKey, lockType, refID string) error {
	return ds.DeleteItem(ctx, PairLocksTable, lockKey(pairKey, lockType), "refId = :refId",
		map[string]types.AttributeValue{":refId": utils.StringAttr(refID)}, true)
}
