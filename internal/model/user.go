package model

import (
	"time"

	"github.com/google/uuid"
)

// PresenceStatus is the persisted online/offline state of a user
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "Online"
	StatusOffline PresenceStatus = "Offline"
)

// Default avatar paths, resolved by clients against the server base URL
const (
	DefaultProfilePic   = "uploads/profile/default.png"
	AnonymousProfilePic = "uploads/profile/Anonymous.png"
	AnonymousName       = "Anonymous"
)

// User represents a chat participant. The display name doubles as the login
// key: there is no password, logging in with an unknown name creates the row.
type User struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Name       string         `json:"name" gorm:"size:100;uniqueIndex;not null"`
	ProfilePic string         `json:"profile_pic" gorm:"size:500;default:''"`
	Status     PresenceStatus `json:"status" gorm:"type:varchar(20);default:'Offline'"`
	LastSeen   *time.Time     `json:"last_seen"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
