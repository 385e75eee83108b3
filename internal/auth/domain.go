package auth

import "time"

// User represents an account. Signup creates users with IsActive false;
// an owner or admin flips the flag through the approval flow.
type User struct {
	ID                    int64      `json:"id"`
	Email                 string     `json:"email"`
	Name                  string     `json:"name"`
	PasswordHash          string     `json:"-"`
	IsActive              bool       `json:"is_active"`
	DefaultBrandProfileID *int64     `json:"default_brand_profile_id,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}
