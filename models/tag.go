package models

// Tag repräsentiert ein frei wählbares Schlagwort für Rezepte.
type Tag struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	Name   string `json:"name" gorm:"size:255;not null"`
	UserID uint   `json:"-" gorm:"index;not null"`
}

func (Tag) TableName() string  { return "tags" }
func (Tag) JoinTable() string  { return "recipe_tags" }
func (Tag) JoinColumn() string { return "tag_id" }

func (t *Tag) SetName(name string)  { t.Name = name }
func (t *Tag) SetOwner(userID uint) { t.UserID = userID }
