package domain

import "time"

// Notification is a single entry in the user's notification feed.
// Ids are unique per owner; redelivery of an id replaces the entry.
type Notification struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"-"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Read      bool      `json:"read"`
	Link      string    `json:"link,omitempty"`
}
