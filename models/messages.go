package models

import "time"

// Message is one entry of a room's append-only history
type Message struct {
	RoomID    string    `dynamodbav:"roomId" json:"roomId"`            // ✅ Partition Key
	SortKey   string    `dynamodbav:"sortKey" json:"-" cbor:"sortKey"` // ✅ Sort Key: zero-padded nanos + messageId
	MessageID string    `dynamodbav:"messageId" json:"messageId"`
	SenderID  string    `dynamodbav:"senderId" json:"senderId"`
	Content   string    `dynamodbav:"content" json:"content"`
	CreatedAt time.Time `dynamodbav:"createdAt" json:"createdAt"`
}

// MessagesTable is the DynamoDB table name for chat messages
const MessagesTable = "Messages"
