package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the platform account, identified by mobile number instead of
// a username. Password stays empty until a two-step password is created.
type User struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Phone           string    `gorm:"uniqueIndex;not null;size:12" json:"phone"`
	Password        string    `json:"-"`
	FirstName       string    `gorm:"size:100" json:"first_name"`
	LastName        string    `gorm:"size:100" json:"last_name"`
	Author          bool      `gorm:"default:false" json:"author"`
	IsStaff         bool      `gorm:"default:false" json:"is_staff"`
	IsSuperuser     bool      `gorm:"default:false" json:"is_superuser"`
	IsActive        bool      `gorm:"default:true" json:"is_active"`
	TwoStepPassword bool      `gorm:"default:false" json:"two_step_password"`
	SpecialUser     time.Time `json:"special_user"`
	DateJoined      time.Time `json:"date_joined"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Relations
	Blogs    []Blog    `gorm:"foreignKey:AuthorID" json:"blogs,omitempty"`
	Comments []Comment `gorm:"foreignKey:UserID" json:"comments,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now().UTC()
	if u.DateJoined.IsZero() {
		u.DateJoined = now
	}
	if u.SpecialUser.IsZero() {
		u.SpecialUser = now
	}
	return nil
}

// FullName returns first and last name joined
func (u *User) FullName() string {
	return fmt.Sprintf("%s %s", u.FirstName, u.LastName)
}

// IsSpecialUser reports whether the special window is still open
func (u *User) IsSpecialUser() bool {
	return u.SpecialUser.After(time.Now())
}

type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID    uuid.UUID `gorm:"type:uuid;not null"`
	Token     string    `gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time

	// Relations
	User User `gorm:"foreignKey:UserID"`
}

func (r *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
