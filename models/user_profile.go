package models

import "time"

// UserProfile is the identity record consulted by the matchmaker
type UserProfile struct {
	UserID      string    `dynamodbav:"userId" json:"userId"`                               // ✅ Partition Key
	DisplayName string    `dynamodbav:"displayName,omitempty" json:"displayName,omitempty"` // Never shown to matches
	Gender      string    `dynamodbav:"gender" json:"gender"`                               // male | female, GSI partition
	Verified    bool      `dynamodbav:"verified" json:"verified"`                           // Email verification state
	CreatedAt   time.Time `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `dynamodbav:"updatedAt" json:"updatedAt"`
}

// UserProfilesTable is the DynamoDB table name for user profiles
const UserProfilesTable = "Users"

// GenderIndex is the GSI used to query candidate pools by gender
const GenderIndex = "gender-index"
