package model

import "time"

// User is an account record. The password is stored only as a bcrypt hash.
type User struct {
	ID           string    `db:"id" gorm:"primaryKey;size:36"`
	Email        string    `db:"email" gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string    `db:"password_hash" gorm:"size:72;not null"`
	CreatedAt    time.Time `db:"created_at" gorm:"autoCreateTime"`
}
