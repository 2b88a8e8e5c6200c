package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"recipe-hand/models"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=5,max=72"`
	Name     string `json:"name" validate:"max=255"`
}

type passwordRequest struct {
	Password string `json:"password" validate:"required,min=5,max=72"`
}

// UserUpdate enthält die änderbaren Profilfelder; nil bleibt unverändert.
type UserUpdate struct {
	Name     *string
	Password *string
}

// UserService verwaltet Konten und prüft Anmeldedaten.
type UserService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

func NewUserService(db *gorm.DB, logger *zap.Logger) *UserService {
	return &UserService{DB: db, Logger: logger}
}

// Register legt ein neues, aktives Konto an.
func (s *UserService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	req := registerRequest{
		Email:    normalizeEmail(email),
		Password: password,
		Name:     strings.TrimSpace(name),
	}
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err, "")
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	user := &models.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.DB.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.Logger.Info("Benutzer registriert", zap.Uint("user_id", user.ID))
	return user, nil
}

// Authenticate prüft E-Mail und Passwort. Unbekannte, inaktive Konten und
// falsche Passwörter liefern denselben Fehler.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (s *UserService) Get(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	return &user, nil
}

// Update ändert Name und/oder Passwort des Benutzers.
func (s *UserService) Update(ctx context.Context, userID uint, upd UserUpdate) (*models.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if upd.Name != nil {
		user.Name = strings.TrimSpace(*upd.Name)
		changes["name"] = user.Name
	}
	if upd.Password != nil {
		if err := validate.Struct(passwordRequest{Password: *upd.Password}); err != nil {
			return nil, formatValidationError(err, "")
		}
		hash, err := hashPassword(*upd.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
		changes["password_hash"] = hash
	}
	if len(changes) == 0 {
		return user, nil
	}

	if err := s.DB.WithContext(ctx).Model(user).Updates(changes).Error; err != nil {
		return nil, fmt.Errorf("update user %d: %w", userID, err)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// hashPassword erwartet ein bereits geprüftes Passwort. bcrypt begrenzt auf
// 72 Bytes, die Feldprüfung zählt Zeichen.
func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", invalid("password", "Ensure this field has no more than 72 bytes.")
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
