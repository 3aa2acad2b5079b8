package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is keyed by wallet address; the address is the only identity the
// system knows. Social fields are optional metadata accumulated later.
type User struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Address   string    `json:"address" gorm:"uniqueIndex;not null"`
	ENS       *string   `json:"ens,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Twitter   *string   `json:"twitter,omitempty"`
	Discord   *string   `json:"discord,omitempty"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`

	WhitelistEntries []WhitelistEntry `json:"whitelistEntries,omitempty" gorm:"foreignKey:UserID"`
	Signatures       []Signature      `json:"signatures,omitempty" gorm:"foreignKey:UserID"`
	Sessions         []Session        `json:"-" gorm:"foreignKey:UserID"`
}

// Addresses are stored lowercased so lookups never depend on caller casing.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Address = strings.ToLower(u.Address)
	return nil
}
