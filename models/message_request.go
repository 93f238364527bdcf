package models

import "time"

// MessageRequest is the consent handshake tied 1:1 to a match ledger entry
type MessageRequest struct {
	RequestID       string    `dynamodbav:"requestId" json:"requestId"`             // ✅ Partition Key
	SenderHandle    string    `dynamodbav:"senderHandle" json:"senderHandle"`       // partyA of the match
	RecipientHandle string    `dynamodbav:"recipientHandle" json:"recipientHandle"` // partyB, the only one allowed to respond
	Status          string    `dynamodbav:"status" json:"status"`                   // pending, accepted, rejected
	MatchID         string    `dynamodbav:"matchId,omitempty" json:"matchId,omitempty"`
	PairKey         string    `dynamodbav:"pairKey" json:"pairKey"`
	CreatedAt       time.Time `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time `dynamodbav:"updatedAt" json:"updatedAt"`
}

// MessageRequestsTable is the DynamoDB table name for the request mailbox
const MessageRequestsTable = "MessageRequests"

// GSI names for the sent and received views
const (
	SenderHandleIndex    = "senderHandle-index"
	RecipientHandleIndex = "recipientHandle-index"
)
