package model

import "time"

type Pet struct {
	ID          int64      `json:"id"`
	OwnerUserID int64      `json:"owner_user_id"`
	FamilyID    *int64     `json:"family_id"`
	Name        string     `json:"name"`
	Species     string     `json:"species"`
	Breed       string     `json:"breed"`
	BirthDate   *time.Time `json:"birth_date"`
	PhotoRef    string     `json:"photo_ref,omitempty"`
	Notes       string     `json:"notes"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
