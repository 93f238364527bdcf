package repositories

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"murmur_server/models"
	"murmur_server/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
)

// fakeDynamo records the last transaction and answers reads from a fixed item.
type fakeDynamo struct {
	item        map[string]types.AttributeValue
	transactErr error
	transacted  [][]types.TransactWriteItem
	queryItems  []map[string]types.AttributeValue
	queries     []*dynamodb.QueryInput
}

func (f *fakeDynamo) GetItem(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.item}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, _ *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, _ *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queries = append(f.queries, params)
	return &dynamodb.QueryOutput{Items: f.queryItems}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return &dynamodb.ScanOutput{}, nil
}

func (f *fakeDynamo) TransactWriteItems(_ context.Context, params *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.transacted = append(f.transacted, params.TransactItems)
	if f.transactErr != nil {
		return nil, f.transactErr
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func canceled(code string) error {
	return &types.TransactionCanceledException{
		Message:             aws.String("Transaction cancelled"),
		CancellationReasons: []types.CancellationReason{{Code: aws.String(code)}, {Code: aws.String("None")}},
	}
}

func newDynamoService(fake *fakeDynamo) *DynamoService {
	return &DynamoService{Client: fake, TablePrefix: "test_", Log: slog.Default()}
}

func TestDynamoMatchRepository_CreateMatchWritesLockAndRecord(t *testing.T) {
	req := require.New(t)
	fake := &fakeDynamo{}
	repo := DynamoMatchRepository{Dynamo: newDynamoService(fake)}

	req.NoError(repo.CreateMatch(context.Background(), newMatch("alice", "bob")))
	req.Len(fake.transacted, 1)

	items := fake.transacted[0]
	req.Len(items, 2)
	req.Equal("test_"+PairLocksTable, aws.ToString(items[0].Put.TableName))
	req.Equal("attribute_not_exists(pairKey)", aws.ToString(items[0].Put.ConditionExpression))
	req.Equal("test_"+models.MatchesTable, aws.ToString(items[1].Put.TableName))
}

func TestDynamoMatchRepository_CreateMatchDuplicate(t *testing.T) {
	req := require.New(t)
	fake := &fakeDynamo{transactErr: canceled("ConditionalCheckFailed")}
	repo := DynamoMatchRepository{Dynamo: newDynamoService(fake)}

	err := repo.CreateMatch(context.Background(), newMatch("alice", "bob"))
	req.ErrorIs(err, ErrDuplicate)
}

func TestDynamoMatchRepository_CreateMatchOtherFailure(t *testing.T) {
	req := require.New(t)
	fake := &fakeDynamo{transactErr: errors.New("throttled")}
	repo := DynamoMatchRepository{Dynamo: newDynamoService(fake)}

	err := repo.CreateMatch(context.Background(), newMatch("alice", "bob"))
	req.Error(err)
	req.NotErrorIs(err, ErrDuplicate)
}

func TestDynamoRequestRepository_RejectReleasesLock(t *testing.T) {
	req := require.New(t)
	request := newRequest("alice", "bob", "m1")
	item, err := attributevalue.MarshalMap(request)
	req.NoError(err)

	fake := &fakeDynamo{item: item}
	repo := DynamoRequestRepository{Dynamo: newDynamoService(fake)}

	updated, err := repo.UpdateRequestStatus(context.Background(), request.RequestID, models.StatusPending, models.StatusRejected)
	req.NoError(err)
	req.Equal(models.StatusRejected, updated.Status)

	items := fake.transacted[0]
	req.Len(items, 2)
	req.Equal("#status = :from", aws.ToString(items[0].Update.ConditionExpression))
	req.NotNil(items[1].Delete)
	req.Equal("test_"+PairLocksTable, aws.ToString(items[1].Delete.TableName))
}

func TestDynamoRequestRepository_AcceptKeepsLock(t *testing.T) {
	req := require.New(t)
	request := newRequest("alice", "bob", "m1")
	item, err := attributevalue.MarshalMap(request)
	req.NoError(err)

	fake := &fakeDynamo{item: item}
	repo := DynamoRequestRepository{Dynamo: newDynamoService(fake)}

	_, err = repo.UpdateRequestStatus(context.Background(), request.RequestID, models.StatusPending, models.StatusAccepted)
	req.NoError(err)
	req.Len(fake.transacted[0], 1)
}

func TestDynamoRequestRepository_ReopenTakesLock(t *testing.T) {
	req := require.New(t)
	request := newRequest("alice", "bob", "m1")
	request.Status = models.StatusRejected
	item, err := attributevalue.MarshalMap(request)
	req.NoError(err)

	fake := &fakeDynamo{item: item}
	repo := DynamoRequestRepository{Dynamo: newDynamoService(fake)}

	updated, err := repo.UpdateRequestStatus(context.Background(), request.RequestID, models.StatusRejected, models.StatusPending)
	req.NoError(err)
	req.Equal(models.StatusPending, updated.Status)

	items := fake.transacted[0]
	req.Len(items, 2)
	req.NotNil(items[1].Put)
	req.Equal("test_"+PairLocksTable, aws.ToString(items[1].Put.TableName))
	req.Equal("attribute_not_exists(pairKey)", aws.ToString(items[1].Put.ConditionExpression))
}

func TestDynamoRequestRepository_FindActiveChecksParties(t *testing.T) {
	req := require.New(t)
	request := newRequest("a#b", "c", "m1")
	item, err := attributevalue.MarshalMap(request)
	req.NoError(err)
	item["refId"] = &types.AttributeValueMemberS{Value: request.RequestID}

	repo := DynamoRequestRepository{Dynamo: newDynamoService(&fakeDynamo{item: item})}

	other, err := repo.FindActiveRequest(context.Background(), "a", "b#c")
	req.NoError(err)
	req.Nil(other)

	same, err := repo.FindActiveRequest(context.Background(), "c", "a#b")
	req.NoError(err)
	req.Equal(request.RequestID, same.RequestID)
}

func TestDynamoRequestRepository_StatusConflict(t *testing.T) {
	req := require.New(t)
	request := newRequest("alice", "bob", "m1")
	item, err := attributevalue.MarshalMap(request)
	req.NoError(err)

	fake := &fakeDynamo{item: item, transactErr: canceled("ConditionalCheckFailed")}
	repo := DynamoRequestRepository{Dynamo: newDynamoService(fake)}

	_, err = repo.UpdateRequestStatus(context.Background(), request.RequestID, models.StatusPending, models.StatusAccepted)
	req.ErrorIs(err, ErrStatusConflict)
}

func TestDynamoService_GetItemNotFound(t *testing.T) {
	req := require.New(t)
	repo := DynamoMatchRepository{Dynamo: newDynamoService(&fakeDynamo{})}

	_, err := repo.GetMatch(context.Background(), "missing")
	req.ErrorIs(err, ErrNotFound)
}

func chatRoom(a, b string) models.ChatRoom {
	low, high := utils.SortedPair(a, b)
	return models.ChatRoom{
		RoomID:       "room-1",
		Participants: []string{low, high},
		PairKey:      utils.PairKey(a, b),
		CreatedAt:    time.Now().UTC(),
	}
}

func TestDynamoRoomRepository_CreateRoomWritesMemberships(t *testing.T) {
	req := require.New(t)
	fake := &fakeDynamo{}
	repo := DynamoRoomRepository{Dynamo: newDynamoService(fake)}

	req.NoError(repo.CreateRoom(context.Background(), chatRoom("alice", "bob")))

	items := fake.transacted[0]
	req.Len(items, 4)
	req.Equal("test_"+PairLocksTable, aws.ToString(items[0].Put.TableName))
	req.Equal("test_"+models.ChatRoomsTable, aws.ToString(items[1].Put.TableName))
	var members []string
	for _, item := range items[2:] {
		req.Equal("test_"+models.RoomMembersTable, aws.ToString(item.Put.TableName))
		members = append(members, item.Put.Item["userId"].(*types.AttributeValueMemberS).Value)
		req.Equal("room-1", item.Put.Item["roomId"].(*types.AttributeValueMemberS).Value)
	}
	req.ElementsMatch([]string{"alice", "bob"}, members)
	_, ok := items[1].Put.Item["userId"]
	req.False(ok)
}

func TestDynamoRoomRepository_ListRoomsQueriesMemberships(t *testing.T) {
	req := require.New(t)
	item, err := attributevalue.MarshalMap(chatRoom("alice", "bob"))
	req.NoError(err)
	item["userId"] = &types.AttributeValueMemberS{Value: "bob"}

	fake := &fakeDynamo{queryItems: []map[string]types.AttributeValue{item}}
	repo := DynamoRoomRepository{Dynamo: newDynamoService(fake)}

	rooms, err := repo.ListRoomsForUser(context.Background(), "bob")
	req.NoError(err)
	req.Len(rooms, 1)
	req.Equal("room-1", rooms[0].RoomID)
	req.Equal([]string{"alice", "bob"}, rooms[0].Participants)

	req.Len(fake.queries, 1)
	req.Equal("test_"+models.RoomMembersTable, aws.ToString(fake.queries[0].TableName))
	req.Equal("#userId = :userId", aws.ToString(fake.queries[0].KeyConditionExpression))
}

func TestDynamoRoomRepository_FindRoomByPairChecksParticipants(t *testing.T) {
	req := require.New(t)
	item, err := attributevalue.MarshalMap(chatRoom("a#b", "c"))
	req.NoError(err)
	item["refId"] = &types.AttributeValueMemberS{Value: "room-1"}

	repo := DynamoRoomRepository{Dynamo: newDynamoService(&fakeDynamo{item: item})}

	other, err := repo.FindRoomByPair(context.Background(), "a", "b#c")
	req.NoError(err)
	req.Nil(other)

	same, err := repo.FindRoomByPair(context.Background(), "c", "a#b")
	req.NoError(err)
	req.Equal("room-1", same.RoomID)
}

func TestDynamoRoomRepository_ListMessagesOldestFirst(t *testing.T) {
	req := require.New(t)
	base := time.Now().UTC()

	var items []map[string]types.AttributeValue
	// The query returns newest first
	for _, id := range []string{"m3", "m2", "m1"} {
		item, err := attributevalue.MarshalMap(models.Message{RoomID: "room-1", MessageID: id, CreatedAt: base})
		req.NoError(err)
		items = append(items, item)
	}
	fake := &fakeDynamo{queryItems: items}
	repo := DynamoRoomRepository{Dynamo: newDynamoService(fake)}

	messages, err := repo.ListMessages(context.Background(), "room-1", 3)
	req.NoError(err)
	req.Equal([]string{"m1", "m2", "m3"}, []string{messages[0].MessageID, messages[1].MessageID, messages[2].MessageID})

	req.Len(fake.queries, 1)
	req.False(aws.ToBool(fake.queries[0].ScanIndexForward))
	req.Equal(int32(3), aws.ToInt32(fake.queries[0].Limit))
}

func TestDynamoPostRepository_AddReplyToMissingPost(t *testing.T) {
	req := require.New(t)
	fake := &fakeDynamo{transactErr: canceled("ConditionalCheckFailed")}
	repo := DynamoPostRepository{Dynamo: newDynamoService(fake)}

	err := repo.AddReply(context.Background(), models.Reply{PostID: "p1", ReplyID: "r1", CreatedAt: time.Now()})
	req.ErrorIs(err, ErrNotFound)
}
