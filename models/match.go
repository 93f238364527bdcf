package models

import "time"

// Match is a match ledger entry: one pairing attempt between two identities
type Match struct {
	MatchID     string    `dynamodbav:"matchId" json:"matchId"`         // ✅ Partition Key
	User1Handle string    `dynamodbav:"user1Handle" json:"user1Handle"` // Requester (partyA)
	User2Handle string    `dynamodbav:"user2Handle" json:"user2Handle"` // Selected candidate (partyB)
	PairKey     string    `dynamodbav:"pairKey" json:"pairKey"`         // Canonical unordered pair
	Status      string    `dynamodbav:"status" json:"status"`           // pending, accepted, rejected
	CreatedAt   time.Time `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `dynamodbav:"updatedAt" json:"updatedAt"`
}

// HasUser reports whether userID is one of the two parties.
func (m *Match) HasUser(userID string) bool {
	return m.User1Handle == userID || m.User2Handle == userID
}

// OtherUser returns the party that is not userID.
func (m *Match) OtherUser(userID string) (string, bool) {
	switch userID {
	case m.User1Handle:
		return m.User2Handle, true
	case m.User2Handle:
		return m.User1Handle, true
	}
	return "", false
}

// MatchesTable is the DynamoDB table name for the match ledger
const MatchesTable = "Matches"

// GSI names for looking up matches by either party
const (
	User1HandleIndex = "user1Handle-index"
	User2HandleIndex = "user2Handle-index"
)
