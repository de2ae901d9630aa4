package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a row of the shared user directory. The messaging core only
// reads it to hydrate payloads; accounts are owned by the auth service.
type User struct {
	ID                    uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name                  string    `json:"name" gorm:"size:100;not null"`
	Email                 string    `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Password              string    `json:"-" gorm:"size:255"`
	Avatar                string    `json:"avatar" gorm:"size:500;default:''"`
	IsNotificationEnabled bool      `json:"is_notification_enabled" gorm:"not null;default:true"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// UserSummary is the public face of a user inside message payloads.
type UserSummary struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Avatar string    `json:"avatar"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
}
