package identity

import "time"

// User is a human operator. WAREHOUSE_STAFF and FIELD_PERSONNEL carry an
// assigned hub; logistics and admin roles operate across the network.
type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	Role         Role
	HubID        string
	Active       bool
	CreatedAt    time.Time
	LastLoginAt  time.Time
}

// DisplayName is what other operators see, e.g. in lock conflict messages.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}
