package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"medgen-server/internal/config"
	"medgen-server/internal/db"
	"medgen-server/internal/identity"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("test db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return conn
}

func newTestServer(t *testing.T) (*Server, *gorm.DB) {
	t.Helper()
	conn := newTestDB(t)
	verifier, err := identity.New(testSecret, 5*time.Second, 120*time.Hour)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	cfg := config.Default()
	cfg.AuthSecret = testSecret
	return New(conn, verifier, cfg), conn
}

func authToken(t *testing.T, userID string) string {
	t.Helper()
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func createUser(t *testing.T, conn *gorm.DB, externalID string) *db.User {
	t.Helper()
	user := db.User{ExternalID: externalID}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &user
}

func seedImages(t *testing.T, conn *gorm.DB, realCount, aiCount int) []db.Image {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var images []db.Image
	for i := 0; i < realCount; i++ {
		images = append(images, db.Image{
			Path:       fmt.Sprintf("images/real-%d.png", i),
			Type:       db.ImageTypeReal,
			UploadTime: base.Add(time.Duration(len(images)) * time.Hour),
		})
	}
	for i := 0; i < aiCount; i++ {
		images = append(images, db.Image{
			Path:       fmt.Sprintf("images/ai-%d.png", i),
			Type:       db.ImageTypeAI,
			UploadTime: base.Add(time.Duration(len(images)) * time.Hour),
		})
	}
	for i := range images {
		if err := conn.Create(&images[i]).Error; err != nil {
			t.Fatalf("seed image: %v", err)
		}
	}
	return images
}

func seedCompetitionTemplate(t *testing.T, conn *gorm.DB, code string, images []db.Image) *db.Game {
	t.Helper()
	game := db.Game{
		PublicID:  uuid.NewString(),
		Code:      code,
		Mode:      db.GameModeCompetition,
		Status:    db.GameStatusActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := conn.Create(&game).Error; err != nil {
		t.Fatalf("seed competition game: %v", err)
	}
	for i, image := range images {
		row := db.GameImage{GameID: game.ID, ImageID: image.ID, Position: i}
		if err := conn.Create(&row).Error; err != nil {
			t.Fatalf("seed competition image: %v", err)
		}
	}
	return &game
}

func doRequest(t *testing.T, engine *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
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
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response body: %v (%s)", err, rec.Body.String())
	}
	return body
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d (%s)", want, rec.Code, rec.Body.String())
	}
}

func responseImages(t *testing.T, body map[string]any) []map[string]any {
	t.Helper()
	raw, ok := body["images"].([]any)
	if !ok {
		t.Fatalf("expected images list, got %#v", body["images"])
	}
	images := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			t.Fatalf("expected image object, got %#v", item)
		}
		images = append(images, entry)
	}
	return images
}

func imageIDsFromResponse(t *testing.T, body map[string]any) map[uint]bool {
	t.Helper()
	ids := make(map[uint]bool)
	for _, entry := range responseImages(t, body) {
		id, ok := entry["imageId"].(float64)
		if !ok {
			t.Fatalf("expected numeric imageId, got %#v", entry["imageId"])
		}
		ids[uint(id)] = true
	}
	return ids
}
