package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WhitelistEntry records one address's membership in one collection.
// The composite unique index is what makes the join upsert idempotent.
type WhitelistEntry struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	UserID       uuid.UUID  `json:"userId" gorm:"type:uuid;not null;uniqueIndex:idx_user_collection"`
	CollectionID uuid.UUID  `json:"collectionId" gorm:"type:uuid;not null;uniqueIndex:idx_user_collection"`
	Tier         string     `json:"tier" gorm:"default:standard"`
	Source       string     `json:"source" gorm:"not null"` // "signature", "manual" or "jwt"
	SignatureID  *uuid.UUID `json:"signatureId,omitempty" gorm:"type:uuid"`
	CreatedAt    time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updatedAt" gorm:"autoUpdateTime"`

	User       User       `json:"-" gorm:"foreignKey:UserID"`
	Collection Collection `json:"-" gorm:"foreignKey:CollectionID"`
}

func (e *WhitelistEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
