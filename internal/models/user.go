package models

import (
	"time"
)

// Roles
const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

// Package is the subscription tier on a client account. Informational only;
// placement never looks at it.
type Package string

const (
	PackageSilver  Package = "silver"
	PackageGold    Package = "gold"
	PackageDiamond Package = "diamond"
)

func (p Package) Valid() bool {
	switch p {
	case PackageSilver, PackageGold, PackageDiamond:
		return true
	}
	return false
}

// User is one account. Client accounts double as tree nodes: ParentID and
// Position are set exactly once at creation and never change. Admins keep
// both nil and sit outside the tree. The composite unique index on
// (parent_id, position) guarantees no two children share a slot even if two
// server processes race.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Password     string    `gorm:"not null" json:"-"` // bcrypt hash
	FullName     string    `gorm:"size:100" json:"full_name"`
	Role         string    `gorm:"size:20;default:'client';not null" json:"role"`
	Package      Package   `gorm:"size:20" json:"package"` // silver, gold, diamond
	PlanID       *uint     `gorm:"index" json:"plan_id"`
	Plan         *Plan     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"plan,omitempty"`
	ParentID     *uint     `gorm:"index;uniqueIndex:idx_parent_position" json:"parent_id"`
	Position     *string   `gorm:"size:10;uniqueIndex:idx_parent_position" json:"position"` // left, right
	ReferralCode string    `gorm:"size:36;uniqueIndex" json:"referral_code"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	// No DeletedAt: failed placements hard-delete the row
}
