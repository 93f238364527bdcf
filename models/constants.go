package models

// Genders accepted by the matchmaker. Anything else is an invalid gender state.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Statuses shared by the match ledger and the request mailbox
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// Post kinds
const (
	PostKindThought    = "thought"
	PostKindConfession = "confession"
)

// Events pushed through the notification relay
const (
	EventRequestNew      = "request:new"
	EventRequestAccepted = "request:accepted"
	EventRequestRejected = "request:rejected"
	EventMessageNew      = "message:new"
)

// IsBinaryGender reports whether g is one of the two genders the matchmaker pairs.
func IsBinaryGender(g string) bool {
	return g == GenderMale || g == GenderFemale
}

// OppositeGender returns the gender a user of gender g is matched with.
func OppositeGender(g string) (string, bool) {
	switch g {
	case GenderMale:
		return GenderFemale, true
	case GenderFemale:
		return GenderMale, true
	}
	return "", false
}

// IsActiveStatus reports whether a ledger or mailbox status still holds its pair.
func IsActiveStatus(status string) bool {
	return status == StatusPending || status == StatusAccepted
}
