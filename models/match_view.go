package models

import "time"

// Participant is the anonymous view of one side of a match
type Participant struct {
	ID     string `json:"id"`
	Gender string `json:"gender"`
}

// MatchView is a match with both parties resolved from fresh identity reads
type MatchView struct {
	MatchID   string      `json:"matchId"`
	User1     Participant `json:"user1"`
	User2     Participant `json:"user2"`
	Status    string      `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}
