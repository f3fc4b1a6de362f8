package model

import "time"

const (
	FamilyRoleOwner  = "owner"
	FamilyRoleMember = "member"
)

type Family struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	FeedToken string    `json:"feed_token"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type FamilyMember struct {
	ID        int64     `json:"id"`
	FamilyID  int64     `json:"family_id"`
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
