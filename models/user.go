package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"heirloom/pkg/auth"
)

type User struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Name            string     `gorm:"size:120;not null" json:"name"`
	Email           string     `gorm:"uniqueIndex;size:120;not null" json:"email"`
	PasswordHash    string     `gorm:"size:255;not null" json:"-"`
	Role            auth.Role  `gorm:"size:20;not null;index" json:"role"`
	ProfileImageURL string     `gorm:"size:500" json:"profileImage,omitempty"`
	LastLogin       *time.Time `json:"lastLogin,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}
