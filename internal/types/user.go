package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type User struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email                string     `gorm:"type:varchar(255);uniqueIndex;not null;column:email" json:"email"`
	PasswordHash         string     `gorm:"not null;column:password_hash" json:"-"`
	FirstName            string     `gorm:"not null;column:first_name" json:"first_name"`
	LastName             string     `gorm:"not null;column:last_name" json:"last_name"`
	AvatarURL            string     `gorm:"column:avatar_url" json:"avatar_url"`
	Biography            string     `gorm:"column:biography" json:"biography"`
	Phone                string     `gorm:"column:phone" json:"phone"`
	RegistrationCategory string     `gorm:"type:varchar(50);column:registration_category" json:"registration_category"`
	CurrentLocationID    *uuid.UUID `gorm:"type:uuid;column:current_location_id" json:"current_location_id,omitempty"`
	CreatedAt            time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// UserEvent is an append-only audit row for profile activity.
type UserEvent struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;index;not null;column:user_id" json:"user_id"`
	EventType string         `gorm:"type:varchar(100);not null;column:event_type" json:"event_type"`
	Payload   datatypes.JSON `gorm:"column:payload" json:"payload,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (UserEvent) TableName() string {
	return "user_events"
}

const (
	UserEventProfileUpdated = "profile_updated"
	UserEventRegistered     = "registered"
)
