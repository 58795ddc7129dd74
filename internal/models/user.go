package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
)

type UserRole string

const (
	RoleStudent  UserRole = "student"
	RoleEducator UserRole = "educator"
	RoleAdmin    UserRole = "admin"
)

func (r UserRole) IsValid() bool {
	switch r {
	case RoleStudent, RoleEducator, RoleAdmin:
		return true
	}
	return false
}

// AllRoles lists every role in a stable order.
func AllRoles() []UserRole {
	return []UserRole{RoleStudent, RoleEducator, RoleAdmin}
}

type UserStatus string

const (
	StatusActive    UserStatus = "active"
	StatusInactive  UserStatus = "inactive"
	StatusPending   UserStatus = "pending"
	StatusSuspended UserStatus = "suspended"
)

func (s UserStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusPending, StatusSuspended:
		return true
	}
	return false
}

type User struct {
	ID           string     `json:"id" gorm:"primaryKey;size:36"`
	Email        string     `json:"email" gorm:"uniqueIndex;not null;size:255"`
	PasswordHash string     `json:"-" gorm:"column:password_hash;not null"`
	Role         UserRole   `json:"role" gorm:"size:20;not null;index"`
	Status       UserStatus `json:"status" gorm:"size:20;not null;index"`

	Profile datatypes.JSONType[UserProfile] `json:"profile" gorm:"type:jsonb;not null"`

	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// NormalizeEmail is applied before every store write and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SetPassword replaces the stored hash. The plaintext is never kept.
func (u *User) SetPassword(password string, cost int) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// ComparePassword reports whether candidate matches the stored hash.
func (u *User) ComparePassword(candidate string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(candidate)) == nil
}

func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

func (u *User) HasRole(roles ...UserRole) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers cannot mutate shared store state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Profile = datatypes.NewJSONType(u.Profile.Data().Clone())
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		c.LastLoginAt = &t
	}
	return &c
}
