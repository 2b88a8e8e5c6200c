package models

import "time"

// User ist ein Konto der Rezept-API. Die E-Mail-Adresse wird klein
// geschrieben gespeichert und dient als Login.
type User struct {
	ID           uint      `json:"-" gorm:"primaryKey"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
	Email        string    `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Name         string    `json:"name" gorm:"size:255"`
	PasswordHash string    `json:"-" gorm:"not null"`
	IsActive     bool      `json:"-" gorm:"not null;default:true"`
}

func (User) TableName() string {
	return "users"
}
