package models

import (
	"time"

	"github.com/lib/pq"
)

// Role identifies which agent is responsible for a task.
type Role string

const (
	RoleAtlas    Role = "atlas"
	RoleForge    Role = "forge"
	RoleFrontend Role = "frontend"
	RoleDesigner Role = "designer"
	RoleQA       Role = "qa"
	RoleMinerva  Role = "minerva"
)

func Roles() []Role {
	return []Role{RoleAtlas, RoleForge, RoleFrontend, RoleDesigner, RoleQA, RoleMinerva}
}

func (r Role) Valid() bool {
	switch r {
	case RoleAtlas, RoleForge, RoleFrontend, RoleDesigner, RoleQA, RoleMinerva:
		return true
	}
	return false
}

// Agent is a registered worker behind a role.
type Agent struct {
	ID           string         `json:"id" db:"id"`
	Role         Role           `json:"role" db:"role"`
	Name         string         `json:"name" db:"name"`
	Capabilities pq.StringArray `json:"capabilities" db:"capabilities"`
	WebhookURL   string         `json:"webhookUrl,omitempty" db:"webhook_url"`
	IsActive     bool           `json:"isActive" db:"is_active"`
	LastSeenAt   *time.Time     `json:"lastSeenAt,omitempty" db:"last_seen_at"`
	CreatedAt    time.Time      `json:"createdAt" db:"created_at"`
}
