package models

// Scope narrows registration listings for reports.
type Scope struct {
	Status    *Status
	CheckedIn *bool
	// Query matches the code exactly or the holder email case-insensitively.
	Query string
	Limit int
}

// Matches applies the scope to a single registration. Stores that cannot
// push the filter into SQL use it directly.
func (s Scope) Matches(r *Registration) bool {
	if s.Status != nil && r.Status != *s.Status {
		return false
	}
	if s.CheckedIn != nil && r.IsCheckedIn() != *s.CheckedIn {
		return false
	}
	if s.Query != "" {
		if NormalizeCode(s.Query) != r.Code && !equalFold(s.Query, r.HolderEmail) {
			return false
		}
	}
	return true
}
