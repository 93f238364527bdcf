package models

import "time"

// ChatRoom is the two-party conversation opened once a request is accepted
type ChatRoom struct {
	RoomID       string    `dynamodbav:"roomId" json:"roomId"`             // ✅ Partition Key
	Participants []string  `dynamodbav:"participants" json:"participants"` // Exactly two, sorted
	PairKey      string    `dynamodbav:"pairKey" json:"pairKey"`
	CreatedAt    time.Time `dynamodbav:"createdAt" json:"createdAt"`
}

// HasParticipant reports whether userID belongs to the room.
func (r *ChatRoom) HasParticipant(userID string) bool {
	for _, p := range r.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// HasPair reports whether the room belongs to exactly the pair {a, b}.
func (r *ChatRoom) HasPair(a, b string) bool {
	return len(r.Participants) == 2 &&
		((r.Participants[0] == a && r.Participants[1] == b) || (r.Participants[0] == b && r.Participants[1] == a))
}

const (
	// ChatRoomsTable is the DynamoDB table name for chat rooms
	ChatRoomsTable = "ChatRooms"
	// RoomMembersTable holds one copy of each room per participant,
	// keyed by userId (partition) and roomId (sort).
	RoomMembersTable = "RoomMembers"
)

// ChatRoomRef is the room reference handed out on acceptance. History is fetched separately.
type ChatRoomRef struct {
	RoomID       string   `json:"roomId"`
	Participants []string `json:"participants"`
}

// Ref returns the reference view of the room.
func (r *ChatRoom) Ref() *ChatRoomRef {
	return &ChatRoomRef{RoomID: r.RoomID, Participants: r.Participants}
}
