package brand

import "time"

// BrandProfile is a tenant: a business entity with its own branding,
// document defaults, and scoped data. The slug is the external identifier.
type BrandProfile struct {
	ID             int64             `json:"id"`
	Name           string            `json:"name"`
	Slug           string            `json:"slug"`
	LogoPath       string            `json:"logo_path,omitempty"`
	EnabledModules map[string]bool   `json:"enabled_modules,omitempty"`
	Defaults       map[string]string `json:"defaults,omitempty"`
	IsActive       bool              `json:"is_active"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// UserBrandScope grants a non-elevated user access to one brand.
// Unique on (UserID, BrandProfileID).
type UserBrandScope struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	BrandProfileID int64     `json:"brand_profile_id"`
	CreatedAt      time.Time `json:"created_at"`
}
