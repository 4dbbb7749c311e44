package postgres

import (
	"time"
)

/*
 * 'User' contains the blueprint definition of a Rally user account.
 * Profile/avatar handling lives in the mobile app, the backend only
 * keeps what login and authorization need.
 */
type User struct {
	Email        string    `gorm:"primaryKey;size:100;not null"`
	Username     string    `gorm:"size:50;not null;uniqueIndex"`
	PasswordHash string    `gorm:"size:255;not null"`
	FullName     string    `gorm:"size:100"`
	MemberSince  time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}
