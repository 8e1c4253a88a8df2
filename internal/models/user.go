package models

// User is the account record. HashedPassword is never serialized to clients.
type User struct {
	ID             int    `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	FullName       string `json:"full_name,omitempty"`
	HashedPassword string `json:"-"`
}
