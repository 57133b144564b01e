package models

import (
	"strings"
	"time"
)

// User is an account holder. Email is the login identifier.
type User struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Email       string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password    string     `gorm:"not null" json:"-"`
	IsStaff     bool       `gorm:"not null;default:false" json:"is_staff"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	IsSuperuser bool       `gorm:"not null;default:false" json:"is_superuser"`
	IsVerified  bool       `gorm:"not null;default:false" json:"is_verified"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Profile     *Profile   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AuthState is the subset of a user consulted by authorization checks.
type AuthState struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	IsStaff     bool   `json:"is_staff"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
	IsVerified  bool   `json:"is_verified"`
	ProfileID   uint   `json:"profile_id"`
}

// AuthStateOf extracts the authorization flags of u.
func AuthStateOf(u *User) AuthState {
	var profileID uint
	if u.Profile != nil {
		profileID = u.Profile.ID
	}
	return AuthState{
		ID:          u.ID,
		Email:       u.Email,
		IsStaff:     u.IsStaff,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		IsVerified:  u.IsVerified,
		ProfileID:   profileID,
	}
}
