package model

import "time"

// Contact is an address-book entry. Every contact belongs to exactly one
// user (OwnerID) and its email is unique within that owner's contacts.
type Contact struct {
	ID        string    `json:"id"        db:"id"`
	Name      string    `json:"name"      db:"name"`
	Email     string    `json:"email"     db:"email"`
	Phone     string    `json:"phone"     db:"phone"`
	OwnerID   string    `json:"ownerId"   db:"owner_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
