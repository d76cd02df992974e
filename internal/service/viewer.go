package service

import "go-course-format/internal/data"

// Viewer is the user a page is rendered for. A nil User is a visitor who is
// not logged in.
type Viewer struct {
	User *data.User
}

// ID returns the user id, or zero when not logged in.
func (v Viewer) ID() int64 {
	if v.User == nil {
		return 0
	}
	return v.User.ID
}

// LoggedIn reports whether the viewer has a session user, the guest
// account included.
func (v Viewer) LoggedIn() bool {
	return v.User != nil
}

// IsGuest reports whether the viewer is the guest account.
func (v Viewer) IsGuest() bool {
	return v.User != nil && v.User.IsGuest
}

// Member reports whether the viewer is logged in with a real account.
func (v Viewer) Member() bool {
	return v.LoggedIn() && !v.IsGuest()
}
