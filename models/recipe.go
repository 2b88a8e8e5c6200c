package models

import "time"

// Recipe ist ein Rezept eines Benutzers mit zugeordneten Tags und Zutaten.
// Price wird als Dezimalzahl gespeichert und als String ausgeliefert.
type Recipe struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	CreatedAt   time.Time    `json:"-"`
	UpdatedAt   time.Time    `json:"-"`
	UserID      uint         `json:"-" gorm:"index;not null"`
	Title       string       `json:"title" gorm:"size:255;not null"`
	Description string       `json:"description" gorm:"type:text"`
	TimeMinutes int          `json:"time_minutes" gorm:"not null"`
	Price       string       `json:"price" gorm:"type:decimal(5,2);not null"`
	Link        string       `json:"link" gorm:"size:255"`
	ImageURL    string       `json:"image,omitempty" gorm:"size:1024"`
	Tags        []Tag        `json:"tags" gorm:"many2many:recipe_tags;"`
	Ingredients []Ingredient `json:"ingredients" gorm:"many2many:recipe_ingredients;"`
}

func (Recipe) TableName() string {
	return "recipes"
}
