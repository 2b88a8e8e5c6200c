package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"recipe-hand/models"
)

// attributePtr schränkt T auf Modelle ein, deren Zeiger models.Attribute
// erfüllen und Name/Besitzer setzen können.
type attributePtr[T any] interface {
	*T
	models.Attribute
	SetName(name string)
	SetOwner(userID uint)
}

// ListFilter steuert die Auflistung von Zutaten und Tags.
type ListFilter struct {
	// AssignedOnly beschränkt auf Einträge, die mindestens einem Rezept des
	// Benutzers zugeordnet sind.
	AssignedOnly bool
}

// AttributeService verwaltet benutzereigene Zutaten bzw. Tags. Alle
// Operationen sind auf den anfragenden Benutzer beschränkt; fremde und
// fehlende Einträge sind nicht unterscheidbar (ErrNotFound).
type AttributeService[T any, P attributePtr[T]] struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

type (
	IngredientService = AttributeService[models.Ingredient, *models.Ingredient]
	TagService        = AttributeService[models.Tag, *models.Tag]
)

func NewAttributeService[T any, P attributePtr[T]](db *gorm.DB, logger *zap.Logger) *AttributeService[T, P] {
	return &AttributeService[T, P]{DB: db, Logger: logger}
}

func NewIngredientService(db *gorm.DB, logger *zap.Logger) *IngredientService {
	return NewAttributeService[models.Ingredient](db, logger)
}

func NewTagService(db *gorm.DB, logger *zap.Logger) *TagService {
	return NewAttributeService[models.Tag](db, logger)
}

func (s *AttributeService[T, P]) ref() P {
	return P(new(T))
}

// List gibt die Einträge des Benutzers absteigend nach Name zurück. Der
// Rezeptfilter läuft über eine Unterabfrage, damit ein Eintrag in mehreren
// Rezepten nur einmal erscheint.
func (s *AttributeService[T, P]) List(ctx context.Context, userID uint, filter ListFilter) ([]T, error) {
	ref := s.ref()
	query := s.DB.WithContext(ctx).Where("user_id = ?", userID)

	if filter.AssignedOnly {
		join := ref.JoinTable()
		assigned := s.DB.Table(join).
			Select(join+"."+ref.JoinColumn()).
			Joins("JOIN recipes ON recipes.id = "+join+".recipe_id").
			Where("recipes.user_id = ?", userID)
		query = query.Where("id IN (?)", assigned)
	}

	items := []T{}
	if err := query.Order("name DESC").Order("id DESC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", ref.TableName(), err)
	}
	return items, nil
}

func (s *AttributeService[T, P]) Get(ctx context.Context, userID, id uint) (P, error) {
	item := s.ref()
	err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", item.TableName(), id, err)
	}
	return item, nil
}

// Update benennt einen Eintrag um. Der Besitzer bleibt unverändert.
func (s *AttributeService[T, P]) Update(ctx context.Context, userID, id uint, name string) (P, error) {
	name, err := validateName("name", name)
	if err != nil {
		return nil, err
	}

	item, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(item).Update("name", name).Error; err != nil {
		return nil, fmt.Errorf("update %s %d: %w", item.TableName(), id, err)
	}
	item.SetName(name)

	s.Logger.Debug("Eintrag umbenannt",
		zap.String("table", item.TableName()),
		zap.Uint("id", id),
		zap.Uint("user_id", userID))
	return item, nil
}

// Delete entfernt den Eintrag und seine Rezeptzuordnungen. Die Rezepte
// selbst bleiben erhalten.
func (s *AttributeService[T, P]) Delete(ctx context.Context, userID, id uint) error {
	ref := s.ref()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		unlink := fmt.Sprintf("DELETE FROM %s WHERE %s IN (SELECT id FROM %s WHERE id = ? AND user_id = ?)",
			ref.JoinTable(), ref.JoinColumn(), ref.TableName())
		if err := tx.Exec(unlink, id, userID).Error; err != nil {
			return fmt.Errorf("unlink %s %d: %w", ref.TableName(), id, err)
		}

		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(s.ref())
		if res.Error != nil {
			return fmt.Errorf("delete %s %d: %w", ref.TableName(), id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Logger.Debug("Eintrag gelöscht",
		zap.String("table", ref.TableName()),
		zap.Uint("id", id),
		zap.Uint("user_id", userID))
	return nil
}

// GetOrCreate liefert den Eintrag mit exakt diesem Namen oder legt ihn an.
func (s *AttributeService[T, P]) GetOrCreate(ctx context.Context, userID uint, name string) (P, error) {
	return getOrCreate[T, P](s.DB.WithContext(ctx), userID, name)
}

func getOrCreate[T any, P attributePtr[T]](tx *gorm.DB, userID uint, name string) (P, error) {
	name, err := validateName("name", name)
	if err != nil {
		return nil, err
	}

	item := P(new(T))
	item.SetOwner(userID)
	item.SetName(name)
	if err := tx.Where("user_id = ? AND name = ?", userID, name).FirstOrCreate(item).Error; err != nil {
		return nil, fmt.Errorf("get or create %s %q: %w", item.TableName(), name, err)
	}
	return item, nil
}
