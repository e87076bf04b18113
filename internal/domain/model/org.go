package model

import "time"

type Org struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type OrgUser struct {
	OrgID        string `json:"org_id"`
	UserID       string `json:"user_id"`
	IsReviewer   bool   `json:"is_reviewer"`
	IsResearcher bool   `json:"is_researcher"`
	IsAdmin      bool   `json:"is_admin"`
}

const (
	RoleAdmin      = "admin"
	RoleReviewer   = "reviewer"
	RoleResearcher = "researcher"
)
