package models

import "time"

// Post is an anonymous thought or confession. The author is stored but never serialised.
type Post struct {
	PostID     string    `dynamodbav:"postId" json:"postId"` // ✅ Partition Key
	Kind       string    `dynamodbav:"kind" json:"kind"`     // thought | confession, GSI partition
	AuthorID   string    `dynamodbav:"authorId" json:"-" cbor:"authorId"`
	Content    string    `dynamodbav:"content" json:"content"`
	ReplyCount int       `dynamodbav:"replyCount" json:"replyCount"`
	SortKey    string    `dynamodbav:"sortKey" json:"-" cbor:"sortKey"` // GSI sort key
	CreatedAt  time.Time `dynamodbav:"createdAt" json:"createdAt"`
}

// Reply is an anonymous answer to a post
type Reply struct {
	PostID    string    `dynamodbav:"postId" json:"postId"`            // ✅ Partition Key
	SortKey   string    `dynamodbav:"sortKey" json:"-" cbor:"sortKey"` // ✅ Sort Key
	ReplyID   string    `dynamodbav:"replyId" json:"replyId"`
	AuthorID  string    `dynamodbav:"authorId" json:"-" cbor:"authorId"`
	Content   string    `dynamodbav:"content" json:"content"`
	CreatedAt time.Time `dynamodbav:"createdAt" json:"createdAt"`
}

// PostWithReplies is the detail view of a post
type PostWithReplies struct {
	Post
	Replies []Reply `json:"replies"`
}

const (
	PostsTable   = "Posts"
	RepliesTable = "Replies"

	// PostKindIndex is the GSI (kind, sortKey) used for newest-first feeds
	PostKindIndex = "kind-sortKey-index"
)
