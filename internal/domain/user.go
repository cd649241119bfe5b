// Package domain defines the persistent entities of the map server.
package domain

import "time"

// User is a registered account. Password holds the bcrypt hash.
type User struct {
	ID        uint      `gorm:"primaryKey"`
	Username  string    `gorm:"uniqueIndex:idx_username,size:191;not null"`
	Password  string    `gorm:"not null"`
	IsAdmin   bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	LastLogin *time.Time
}

func (User) TableName() string { return "users" }
