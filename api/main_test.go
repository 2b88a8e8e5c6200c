package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"recipe-hand/models"
	"recipe-hand/services"
	"recipe-hand/storage"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testEnv struct {
	db     *gorm.DB
	deps   Dependencies
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "api.db") + "?_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, storage.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	log := zaptest.NewLogger(t)
	deps := Dependencies{
		Logger:      log,
		Tokens:      services.NewTokenIssuer("test-secret", "recipe-hand", time.Hour),
		Users:       services.NewUserService(db, log),
		Recipes:     services.NewRecipeService(db, log),
		Ingredients: services.NewIngredientService(db, log),
		Tags:        services.NewTagService(db, log),
	}
	return &testEnv{db: db, deps: deps, router: NewRouter(deps)}
}

// withDeps baut den Router mit geänderten Abhängigkeiten neu.
func (e *testEnv) withDeps(t *testing.T, change func(*Dependencies)) {
	t.Helper()
	change(&e.deps)
	e.router = NewRouter(e.deps)
}

func (e *testEnv) createUser(t *testing.T, email string) (*models.User, string) {
	t.Helper()
	user, err := e.deps.Users.Register(context.Background(), email, "testpass123", "Test User")
	require.NoError(t, err)
	token, err := e.deps.Tokens.Issue(user)
	require.NoError(t, err)
	return user, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type item struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func decodeItems(t *testing.T, w *httptest.ResponseRecorder) []item {
	t.Helper()
	var items []item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	return items
}

func itemNames(items []item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}
