package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"recipe-hand/models"
)

// RecipeInput enthält die Felder einer Anlage oder Änderung. nil bedeutet
// "nicht angegeben"; bei Tags/Ingredients bleibt die Zuordnung dann erhalten.
// Tag- und Zutatennamen werden beim Zuordnen geprüft.
type RecipeInput struct {
	Title       *string   `json:"title" validate:"required,max=255"`
	Description *string   `json:"description"`
	TimeMinutes *int      `json:"time_minutes" validate:"omitempty,gte=0"`
	Price       *string   `json:"price" validate:"required,price"`
	Link        *string   `json:"link" validate:"omitempty,max=255"`
	Tags        *[]string `json:"tags"`
	Ingredients *[]string `json:"ingredients"`
}

// RecipeFilter beschränkt die Rezeptliste auf Tag- bzw. Zutaten-IDs.
type RecipeFilter struct {
	TagIDs        []uint
	IngredientIDs []uint
}

// validate normalisiert Titel und Preis und prüft die Felder. Mit
// partial=true werden nur die angegebenen Felder geprüft.
func (in *RecipeInput) validate(partial bool) error {
	if in.Title != nil {
		title := normalizeName(*in.Title)
		in.Title = &title
	}
	if in.Price != nil {
		price := strings.TrimSpace(*in.Price)
		in.Price = &price
	}

	if !partial && in.TimeMinutes == nil {
		return invalid("time_minutes", "This field is required.")
	}

	var err error
	if partial {
		err = validate.StructPartial(in, in.providedFields()...)
	} else {
		err = validate.Struct(in)
	}
	if err != nil {
		return formatValidationError(err, "")
	}
	return nil
}

func (in *RecipeInput) providedFields() []string {
	var fields []string
	if in.Title != nil {
		fields = append(fields, "Title")
	}
	if in.TimeMinutes != nil {
		fields = append(fields, "TimeMinutes")
	}
	if in.Price != nil {
		fields = append(fields, "Price")
	}
	if in.Link != nil {
		fields = append(fields, "Link")
	}
	return fields
}

func (in *RecipeInput) apply(r *models.Recipe) {
	if in.Title != nil {
		r.Title = *in.Title
	}
	if in.Description != nil {
		r.Description = *in.Description
	}
	if in.TimeMinutes != nil {
		r.TimeMinutes = *in.TimeMinutes
	}
	if in.Price != nil {
		r.Price = *in.Price
	}
	if in.Link != nil {
		r.Link = *in.Link
	}
}

// RecipeService verwaltet die Rezepte eines Benutzers samt Tag- und
// Zutatenzuordnung.
type RecipeService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

func NewRecipeService(db *gorm.DB, logger *zap.Logger) *RecipeService {
	return &RecipeService{DB: db, Logger: logger}
}

func (s *RecipeService) withAssociations(db *gorm.DB) *gorm.DB {
	byName := func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }
	return db.Preload("Tags", byName).Preload("Ingredients", byName)
}

// List liefert die Rezepte des Benutzers, neueste zuerst.
func (s *RecipeService) List(ctx context.Context, userID uint, filter RecipeFilter) ([]models.Recipe, error) {
	query := s.withAssociations(s.DB.WithContext(ctx)).Where("user_id = ?", userID)
	if len(filter.TagIDs) > 0 {
		query = query.Where("id IN (?)", s.DB.Table("recipe_tags").Select("recipe_id").Where("tag_id IN ?", filter.TagIDs))
	}
	if len(filter.IngredientIDs) > 0 {
		query = query.Where("id IN (?)", s.DB.Table("recipe_ingredients").Select("recipe_id").Where("ingredient_id IN ?", filter.IngredientIDs))
	}

	recipes := []models.Recipe{}
	if err := query.Order("id DESC").Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return recipes, nil
}

func (s *RecipeService) Get(ctx context.Context, userID, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.withAssociations(s.DB.WithContext(ctx)).
		Where("id = ? AND user_id = ?", id, userID).
		First(&recipe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recipe %d: %w", id, err)
	}
	return &recipe, nil
}

// Create legt ein Rezept an. Tags und Zutaten werden per Name gesucht oder
// für den Benutzer neu angelegt.
func (s *RecipeService) Create(ctx context.Context, userID uint, in RecipeInput) (*models.Recipe, error) {
	if err := in.validate(false); err != nil {
		return nil, err
	}

	recipe := &models.Recipe{UserID: userID}
	in.apply(recipe)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(recipe).Error; err != nil {
			return fmt.Errorf("create recipe: %w", err)
		}
		return replaceAssociations(tx, recipe, in)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Rezept angelegt", zap.Uint("id", recipe.ID), zap.Uint("user_id", userID))
	return s.Get(ctx, userID, recipe.ID)
}

// Update ändert ein Rezept. Mit partial=false müssen alle Pflichtfelder
// angegeben sein.
func (s *RecipeService) Update(ctx context.Context, userID, id uint, in RecipeInput, partial bool) (*models.Recipe, error) {
	if err := in.validate(partial); err != nil {
		return nil, err
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recipe models.Recipe
		err := tx.Where("id = ? AND user_id = ?", id, userID).First(&recipe).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load recipe %d: %w", id, err)
		}

		in.apply(&recipe)
		if err := tx.Omit(clause.Associations).Save(&recipe).Error; err != nil {
			return fmt.Errorf("save recipe %d: %w", id, err)
		}
		return replaceAssociations(tx, &recipe, in)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, id)
}

// Delete entfernt das Rezept und seine Zuordnungen; Tags und Zutaten bleiben.
func (s *RecipeService) Delete(ctx context.Context, userID, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, join := range []string{"recipe_tags", "recipe_ingredients"} {
			unlink := "DELETE FROM " + join + " WHERE recipe_id IN (SELECT id FROM recipes WHERE id = ? AND user_id = ?)"
			if err := tx.Exec(unlink, id, userID).Error; err != nil {
				return fmt.Errorf("unlink recipe %d: %w", id, err)
			}
		}

		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Recipe{})
		if res.Error != nil {
			return fmt.Errorf("delete recipe %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// SetImage speichert den Link auf ein hochgeladenes Bild.
func (s *RecipeService) SetImage(ctx context.Context, userID, id uint, url string) (*models.Recipe, error) {
	res := s.DB.WithContext(ctx).Model(&models.Recipe{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("image_url", url)
	if res.Error != nil {
		return nil, fmt.Errorf("set image for recipe %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, userID, id)
}

func replaceAssociations(tx *gorm.DB, recipe *models.Recipe, in RecipeInput) error {
	if in.Tags != nil {
		tags := make([]models.Tag, 0, len(*in.Tags))
		for _, name := range uniqueNames(*in.Tags) {
			tag, err := getOrCreate[models.Tag](tx, recipe.UserID, name)
			if err != nil {
				return err
			}
			tags = append(tags, *tag)
		}
		if err := replaceAssociation(tx, recipe, "Tags", tags, len(tags)); err != nil {
			return fmt.Errorf("assign tags to recipe %d: %w", recipe.ID, err)
		}
	}

	if in.Ingredients != nil {
		ingredients := make([]models.Ingredient, 0, len(*in.Ingredients))
		for _, name := range uniqueNames(*in.Ingredients) {
			ingredient, err := getOrCreate[models.Ingredient](tx, recipe.UserID, name)
			if err != nil {
				return err
			}
			ingredients = append(ingredients, *ingredient)
		}
		if err := replaceAssociation(tx, recipe, "Ingredients", ingredients, len(ingredients)); err != nil {
			return fmt.Errorf("assign ingredients to recipe %d: %w", recipe.ID, err)
		}
	}
	return nil
}

func replaceAssociation(tx *gorm.DB, recipe *models.Recipe, name string, values any, n int) error {
	assoc := tx.Model(recipe).Association(name)
	if n == 0 {
		return assoc.Clear()
	}
	return assoc.Replace(values)
}

func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = normalizeName(name)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
