package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	BlogStatusPublished = "p"
	BlogStatusDraft     = "d"
)

type Blog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	AuthorID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"author_id"`
	Title      string     `gorm:"not null;size:200" json:"title"`
	Slug       string     `gorm:"uniqueIndex;not null" json:"slug"`
	Body       string     `gorm:"not null" json:"body"`
	Image      string     `json:"image"`
	Summary    string     `gorm:"size:400" json:"summary"`
	Publish    time.Time  `json:"publish"`
	Special    bool       `gorm:"default:false" json:"special"`
	Status     string     `gorm:"not null;size:1" json:"status"`
	Visits     uint       `gorm:"default:0" json:"visits"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// Relations
	Author     User       `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Categories []Category `gorm:"many2many:blog_categories" json:"categories,omitempty"`
	Likes      []User     `gorm:"many2many:blog_likes" json:"likes,omitempty"`
	Comments   []Comment  `gorm:"foreignKey:BlogID" json:"comments,omitempty"`
}

func (b *Blog) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Publish.IsZero() {
		b.Publish = time.Now().UTC()
	}
	return nil
}

// IsPublished reports whether the blog is visible to readers
func (b *Blog) IsPublished() bool {
	return b.Status == BlogStatusPublished
}

type Category struct {
	ID       uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ParentID *uuid.UUID `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Title    string     `gorm:"not null;size:200" json:"title"`
	Slug     string     `gorm:"uniqueIndex;not null" json:"slug"`
	Status   bool       `gorm:"default:false" json:"status"`

	// Relations
	Parent   *Category  `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children []Category `gorm:"foreignKey:ParentID" json:"children,omitempty"`
	Blogs    []Blog     `gorm:"many2many:blog_categories" json:"blogs,omitempty"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
