package models

import "time"

// Comment is a reader response to a post. It is hidden until approved.
type Comment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PostID     uint      `gorm:"not null;index" json:"post_id"`
	Post       *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"post,omitempty"`
	AuthorID   uint      `gorm:"not null;index" json:"author_id"`
	Author     *Profile  `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	IsApproved bool      `gorm:"not null;default:false;index" json:"is_approved"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CommentFilter narrows a comment listing.
type CommentFilter struct {
	PostID uint
	// ViewerProfileID is the caller's profile, zero when anonymous.
	ViewerProfileID uint
	ViewerIsStaff   bool
	// PendingOnly restricts the listing to unapproved comments.
	PendingOnly bool
}
