package domain

import "time"

type AdminRole string

const (
	AdminRoleSuperAdmin AdminRole = "super_admin"
	AdminRoleSupport    AdminRole = "support"
	AdminRoleReadOnly   AdminRole = "read_only"
)

type Admin struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	Name           string    `json:"name"`
	Role           AdminRole `json:"role"`
	IsActive       bool      `json:"is_active"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ActivityLog is the append-only audit trail of admin portal actions.
type ActivityLog struct {
	ID      string `json:"id"`
	AdminID string `json:"admin_id"`

	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	IPAddress  string         `json:"ip_address,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	AdminName string `json:"admin_name,omitempty"` // joined on reads
}
