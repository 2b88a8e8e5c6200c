package models

// Ingredient repräsentiert eine Zutat. Jede Zutat gehört genau einem Benutzer.
type Ingredient struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	Name   string `json:"name" gorm:"size:255;not null"`
	UserID uint   `json:"-" gorm:"index;not null"`
}

func (Ingredient) TableName() string  { return "ingredients" }
func (Ingredient) JoinTable() string  { return "recipe_ingredients" }
func (Ingredient) JoinColumn() string { return "ingredient_id" }

func (i *Ingredient) SetName(name string)  { i.Name = name }
func (i *Ingredient) SetOwner(userID uint) { i.UserID = userID }
