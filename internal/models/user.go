package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	ProviderLocal = "local"

	DefaultQuota int64 = 100
)

type User struct {
	ID             int64     `json:"id" db:"id"`
	Email          string    `json:"email" db:"email"`
	Provider       string    `json:"provider" db:"provider"`
	ProviderUserID *string   `json:"provider_user_id,omitempty" db:"provider_user_id"`
	Role           string    `json:"role" db:"role"`
	Quota          int64     `json:"quota" db:"quota"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}
