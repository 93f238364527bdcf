package models

// IdentityFilter narrows an identity lookup to a candidate pool
type IdentityFilter struct {
	Gender       string
	VerifiedOnly bool
}

// Matches reports whether the profile satisfies the filter.
func (f IdentityFilter) Matches(p UserProfile) bool {
	if f.Gender != "" && p.Gender != f.Gender {
		return false
	}
	if f.VerifiedOnly && !p.Verified {
		return false
	}
	return true
}
