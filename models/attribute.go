package models

// Attribute beschreibt benutzereigene Einträge (Zutaten, Tags), die über eine
// Verknüpfungstabelle Rezepten zugeordnet werden.
type Attribute interface {
	TableName() string
	// JoinTable liefert die m2m-Tabelle zu recipes.
	JoinTable() string
	// JoinColumn ist die Spalte in JoinTable, die auf diesen Eintrag zeigt.
	JoinColumn() string
}
