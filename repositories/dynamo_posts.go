package repositories

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"murmur_server/models"
	"murmur_server/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoPostRepository stores posts and replies
type DynamoPostRepository struct {
	Dynamo *DynamoService
}

func postKey(postID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"postId": utils.StringAttr(postID)}
}

func (r DynamoPostRepository) CreatePost(ctx context.Context, post models.Post) error {
	if post.SortKey == "" {
		post.SortKey = utils.TimeSortKey(post.CreatedAt, post.PostID)
	}
	item, err := attributevalue.MarshalMap(post)
	if err != nil {
		return fmt.Errorf("failed to marshal post: %w", err)
	}
	return r.Dynamo.PutItem(ctx, models.PostsTable, item)
}

func (r DynamoPostRepository) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	item, err := r.Dynamo.GetItem(ctx, models.PostsTable, postKey(postID))
	if err != nil {
		return nil, err
	}
	var post models.Post
	if err := attributevalue.UnmarshalMap(item, &post); err != nil {
		return nil, fmt.Errorf("failed to unmarshal post: %w", err)
	}
	return &post, nil
}

// ListPosts queries the kind index newest first. Without a kind both feeds are
// merged by sort key.
func (r DynamoPostRepository) ListPosts(ctx context.Context, kind string, limit int) ([]models.Post, error) {
	kinds := []string{kind}
	if kind == "" {
		kinds = []string{models.PostKindThought, models.PostKindConfession}
	}

	var posts []models.Post
	for _, k := range kinds {
		items, err := r.Dynamo.QueryItemsWithOptions(ctx, models.PostsTable, models.PostKindIndex,
			"#kind = :kind",
			map[string]types.AttributeValue{":kind": utils.StringAttr(k)},
			map[string]string{"#kind": "kind"},
			int32(limit), true)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch posts: %w", err)
		}
		var page []models.Post
		if err := attributevalue.UnmarshalListOfMaps(items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal posts: %w", err)
		}
		posts = append(posts, page...)
	}

	slices.SortFunc(posts, func(a, b models.Post) int { return strings.Compare(b.SortKey, a.SortKey) })
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

// AddReply writes the reply and increments the post counter atomically. A
// missing post fails the condition and is reported as ErrNotFound.
func (r DynamoPostRepository) AddReply(ctx context.Context, reply models.Reply) error {
	if reply.SortKey == "" {
		reply.SortKey = utils.TimeSortKey(reply.CreatedAt, reply.ReplyID)
	}
	item, err := attributevalue.MarshalMap(reply)
	if err != nil {
		return fmt.Errorf("failed to marshal reply: %w", err)
	}
	err = r.Dynamo.TransactWrite(ctx, []types.TransactWriteItem{
		{Put: &types.Put{TableName: aws.String(r.Dynamo.Table(models.RepliesTable)), Item: item}},
		{Update: &types.Update{
			TableName:                 aws.String(r.Dynamo.Table(models.PostsTable)),
			Key:                       postKey(reply.PostID),
			UpdateExpression:          aws.String("ADD replyCount :one"),
			ConditionExpression:       aws.String("attribute_exists(postId)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{":one": &types.AttributeValueMemberN{Value: "1"}},
		}},
	})
	if isConditionFailure(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to add reply: %w", err)
	}
	return nil
}

func (r DynamoPostRepository) ListReplies(ctx context.Context, postID string) ([]models.Reply, error) {
	items, err := r.Dynamo.QueryAll(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.Dynamo.Table(models.RepliesTable)),
		KeyConditionExpression:    aws.String("postId = :postId"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":postId": utils.StringAttr(postID)},
	})
	if err != nil {
		return nil, err
	}
	var replies []models.Reply
	if err := attributevalue.UnmarshalListOfMaps(items, &replies); err != nil {
		return nil, fmt.Errorf("failed to unmarshal replies: %w", err)
	}
	return replies, nil
}
