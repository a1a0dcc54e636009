package models

import "time"

// User is an authenticated account. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Ref returns the embeddable read-side shape of the user.
func (u *User) Ref() *UserRef {
	if u == nil {
		return nil
	}
	return &UserRef{ID: u.ID, Username: u.Username}
}

// ActivityLog records one board action. The username is a denormalized copy,
// not a reference, so entries survive user deletion. Entries are append-only.
type ActivityLog struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"createdAt"`
}

// Board is the full board state returned to a freshly-connected client.
type Board struct {
	Tasks []Task        `json:"tasks"`
	Users []UserRef     `json:"users"`
	Logs  []ActivityLog `json:"logs"`
}
