package user

import (
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

// User is a tenant of the calendar service. Credentials and sessions are
// handled by the external identity provider; this record only anchors
// ownership of calendar data.
type User struct {
	ID          string
	Username    string
	DisplayName string
	CreatedAt   time.Time
}
