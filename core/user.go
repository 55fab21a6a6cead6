package core

import "time"

type (
	// Operator is a person allowed to edit templates.
	Operator struct {
		Subject   string    `json:"subject"`
		Login     string    `json:"login"`
		Email     string    `json:"email"`
		AvatarURL string    `json:"avatarUrl"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"createdAt"`
	}
)
