package domain

import "time"

type EditorPick struct {
	PostID    string    `json:"post_id"`
	Priority  int       `json:"priority"`
	Active    bool      `json:"is_active"`
	AddedBy   string    `json:"added_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
