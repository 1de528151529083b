package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PhoneOtp is the persistent record of outstanding verification codes for
// a phone number. Count is the number of codes issued since the last
// successful verification; records are never deleted by the auth flow.
type PhoneOtp struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Phone     string    `gorm:"uniqueIndex;not null;size:12"`
	Code      string    `gorm:"size:6"`
	Count     int       `gorm:"not null;default:0"`
	Verified  bool      `gorm:"default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *PhoneOtp) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
