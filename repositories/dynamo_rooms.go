package repositories

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"murmur_server/models"
	"murmur_server/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoRoomRepository stores chat rooms and messages
type DynamoRoomRepository struct {
	Dynamo *DynamoService
}

func (r DynamoRoomRepository) FindRoomByPair(ctx context.Context, userA, userB string) (*models.ChatRoom, error) {
	holder, err := r.Dynamo.lockHolder(ctx, utils.PairKey(userA, userB), lockTypeRoom)
	if err != nil || holder == "" {
		return nil, err
	}
	room, err := r.GetRoom(ctx, holder)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil || !room.HasPair(userA, userB) {
		return nil, err
	}
	return room, nil
}

// CreateRoom takes the pair lock and writes the room plus one membership row
// per participant in a single transaction. Rooms are immutable, so the
// membership rows carry the full room.
func (r DynamoRoomRepository) CreateRoom(ctx context.Context, room models.ChatRoom) error {
	item, err := attributevalue.MarshalMap(room)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}
	items := []types.TransactWriteItem{
		r.Dynamo.acquireLock(room.PairKey, lockTypeRoom, room.RoomID),
		{Put: &types.Put{TableName: aws.String(r.Dynamo.Table(models.ChatRoomsTable)), Item: item}},
	}
	for _, userID := range room.Participants {
		member := maps.Clone(item)
		member["userId"] = utils.StringAttr(userID)
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{TableName: aws.String(r.Dynamo.Table(models.RoomMembersTable)), Item: member},
		})
	}
	err = r.Dynamo.TransactWrite(ctx, items)
	if isConditionFailure(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	return nil
}

func (r DynamoRoomRepository) GetRoom(ctx context.Context, roomID string) (*models.ChatRoom, error) {
	item, err := r.Dynamo.GetItem(ctx, models.ChatRoomsTable, map[string]types.AttributeValue{
		"roomId": utils.StringAttr(roomID),
	})
	if err != nil {
		return nil, err
	}
	var room models.ChatRoom
	if err := attributevalue.UnmarshalMap(item, &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}
	return &room, nil
}

// ListRoomsForUser reads the user's membership partition.
func (r DynamoRoomRepository) ListRoomsForUser(ctx context.Context, userID string) ([]models.ChatRoom, error) {
	items, err := r.Dynamo.QueryAll(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.Dynamo.Table(models.RoomMembersTable)),
		KeyConditionExpression:    aws.String("#userId = :userId"),
		ExpressionAttributeNames:  map[string]string{"#userId": "userId"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":userId": utils.StringAttr(userID)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rooms: %w", err)
	}
	var rooms []models.ChatRoom
	if err := attributevalue.UnmarshalListOfMaps(items, &rooms); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rooms: %w", err)
	}
	return rooms, nil
}

func (r DynamoRoomRepository) AppendMessage(ctx context.Context, message models.Message) error {
	if message.SortKey == "" {
		message.SortKey = utils.TimeSortKey(message.CreatedAt, message.MessageID)
	}
	item, err := attributevalue.MarshalMap(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return r.Dynamo.PutItem(ctx, models.MessagesTable, item)
}

// ListMessages fetches the latest messages first, then reverses them so the
// newest message is at the bottom in the UI.
func (r DynamoRoomRepository) ListMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	items, err := r.Dynamo.QueryItemsWithOptions(ctx, models.MessagesTable, "",
		"#roomId = :roomId",
		map[string]types.AttributeValue{":roomId": utils.StringAttr(roomID)},
		map[string]string{"#roomId": "roomId"},
		int32(limit), true)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	var messages []models.Message
	if err := attributevalue.UnmarshalListOfMaps(items, &messages); err != nil {
		return nil, fmt.Errorf("failed to parse messages: %w", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
