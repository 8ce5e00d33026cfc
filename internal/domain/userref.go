package domain

// MeSentinel is the literal stored in user-typed condition values to mean
// "the acting user". It is resolved at query-evaluation time, never at edit
// or save time, so a saved view containing it floats with whoever runs it.
const MeSentinel = "me"

// UserRef is either the acting-user sentinel or a concrete user ID.
type UserRef struct {
	me bool
	id string
}

// CurrentUserRef refers to whoever evaluates the filter.
func CurrentUserRef() UserRef { return UserRef{me: true} }

// UserIDRef refers to a fixed user.
func UserIDRef(id string) UserRef { return UserRef{id: id} }

// ParseUserRef interprets a stored condition value element.
func ParseUserRef(raw string) UserRef {
	if raw == MeSentinel {
		return CurrentUserRef()
	}
	return UserIDRef(raw)
}

// IsMe reports whether the reference floats to the acting user.
func (r UserRef) IsMe() bool { return r.me }

// Resolve returns the concrete user ID for the given acting user.
func (r UserRef) Resolve(actingUserID string) string {
	if r.me {
		return actingUserID
	}
	return r.id
}

// String returns the wire representation (the sentinel or the raw ID).
func (r UserRef) String() string {
	if r.me {
		return MeSentinel
	}
	return r.id
}
