package models

import (
	"time"
)

// Plan is a commission plan record. The server stores and serves plans;
// payout computation happens in the back office, not here.
type Plan struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"size:50;not null;unique" json:"name"`
	Description   string    `gorm:"size:200" json:"description"`
	PriceCents    int       `gorm:"not null;default:0" json:"price_cents"`
	ReferralBonus int       `gorm:"default:0" json:"referral_bonus"` // cents per direct signup
	PairBonus     int       `gorm:"default:0" json:"pair_bonus"`     // cents per matched left/right pair
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
