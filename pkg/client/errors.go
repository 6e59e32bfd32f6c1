package client

import "strings"

// ErrNotConnected is returned by operations that need a session.
type ErrNotConnected struct{}

func (e *ErrNotConnected) Error() string {
	return "not connected"
}

// ErrNotLoggedIn is returned by operations that need a logged in slot.
type ErrNotLoggedIn struct{}

func (e *ErrNotLoggedIn) Error() string {
	return "not logged in"
}

// ErrLoginRejected is returned when the service refuses the login.
type ErrLoginRejected struct {
	Reasons []string
}

func (e *ErrLoginRejected) Error() string {
	if len(e.Reasons) == 0 {
		return "login rejected"
	}
	return "login rejected: " + strings.Join(e.Reasons, ", ")
}
