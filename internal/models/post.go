package models

import "time"

// Post statuses.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// ValidPostStatus reports whether s is a known post status.
func ValidPostStatus(s string) bool {
	return s == StatusDraft || s == StatusPublished
}

// Post is a blog entry written by a profile.
type Post struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"size:250;not null" json:"title"`
	Slug       string    `gorm:"uniqueIndex;size:270;not null" json:"slug"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Status     string    `gorm:"size:10;not null;default:draft;index" json:"status"`
	Image      string    `json:"image"`
	AuthorID   uint      `gorm:"not null;index" json:"author_id"`
	Author     *Profile  `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	CategoryID *uint     `gorm:"index" json:"category_id,omitempty"`
	Category   *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category,omitempty"`
	Tags       []Tag     `gorm:"many2many:post_tags;constraint:OnDelete:CASCADE" json:"tags"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsDraft reports whether the post is unpublished.
func (p *Post) IsDraft() bool {
	return p.Status == StatusDraft
}

// PostFilter narrows a post listing.
type PostFilter struct {
	Status   string
	Search   string
	Category string
	Tag      string
	Author   string
	Ordering string
	// ViewerProfileID is the caller's profile, zero when anonymous.
	ViewerProfileID uint
	// ViewerIsStaff lifts draft filtering.
	ViewerIsStaff bool
}
