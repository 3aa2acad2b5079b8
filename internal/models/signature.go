package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Signature is a verified signed message kept for provenance.
type Signature struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `json:"userId" gorm:"type:uuid;index;not null"`
	Message   string    `json:"message" gorm:"type:text;not null"`
	Signature string    `json:"signature" gorm:"type:text;not null"`
	Purpose   string    `json:"purpose" gorm:"not null"` // "auth" or "whitelist"
	IPAddress *string   `json:"ipAddress,omitempty"`
	UserAgent *string   `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

func (s *Signature) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
