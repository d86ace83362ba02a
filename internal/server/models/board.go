package models

import "time"

// Role is a member's permission level on a board.
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleContributor Role = "CONTRIBUTOR"
)

type Board struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	CreatedAt time.Time    `json:"created_at"`
	Members   []Membership `json:"members"`
}

type Membership struct {
	ID      string `json:"id"`
	BoardID string `json:"board_id"`
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Role    Role   `json:"role"`
}
