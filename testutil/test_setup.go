// Package testutil はテスト用のDB・ルーター・データ作成ヘルパーを提供します。
// テストは一時ディレクトリのSQLiteに対して動くため、外部のDBサーバーは不要です。
package testutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/Karim-Nady/Smart-Task-Reminder/internal/clock"
	"github.com/Karim-Nady/Smart-Task-Reminder/internal/database"
	"github.com/Karim-Nady/Smart-Task-Reminder/internal/models"
	"github.com/Karim-Nady/Smart-Task-Reminder/internal/repositories"
	"github.com/Karim-Nady/Smart-Task-Reminder/internal/routes"
)

// OpenTestDB は一時ファイル上のSQLiteを開き、スキーマを適用して返します。
// テストごとに新しいファイルなのでTRUNCATEによる掃除は不要です。
func OpenTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "Failed to open test database")
	require.NoError(t, database.Migrate(db), "Failed to migrate test database")

	t.Cleanup(func() { db.Close() })
	return db
}

// SetupTestDB はテスト用DBとルーターをセットアップし、テストユーザーを投入します。
func SetupTestDB(t *testing.T) (*sqlx.DB, *gin.Engine, *repositories.TaskRepository, *repositories.UserRepository) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")

	gin.SetMode(gin.TestMode)

	db := OpenTestDB(t)
	userRepo := repositories.NewUserRepository(db)

	// テストユーザーの挿入
	CreateTestUser(t, userRepo, "normal_user", "normal_user@example.com", "password123")
	CreateTestUser(t, userRepo, "second_user", "second_user@example.com", "password456")

	router := routes.SetupRouter(db, clock.System())
	taskRepo := repositories.NewTaskRepository(db)

	return db, router, taskRepo, userRepo
}

// CreateTestUser はテスト用のユーザーを作成し、データベースに保存します。
func CreateTestUser(t *testing.T, userRepo *repositories.UserRepository, username, email, password string) *models.User {
	t.Helper()

	hashedPassword, err := repositories.HashPassword(password)
	require.NoError(t, err)

	now := time.Now().UTC()
	newUser := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	createdUser, err := userRepo.Create(newUser)
	require.NoError(t, err)
	require.NotNil(t, createdUser)
	require.NotEqual(t, 0, createdUser.ID)
	return createdUser
}

// CreateTestTask はAPI経由でテスト用のタスクを作成します。
func CreateTestTask(t *testing.T, router *gin.Engine, token string, payload map[string]interface{}) *models.Task {
	t.Helper()

	body, _ := json.Marshal(payload)

	req, _ := http.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBuffer(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code, "タスク作成に失敗しました: %s", resp.Body.String())

	var createdTask models.Task
	err := json.Unmarshal(resp.Body.Bytes(), &createdTask)
	require.NoError(t, err)
	return &createdTask
}

// LoginAndGetToken はログインAPIを叩いてJWTトークンを取得します。
func LoginAndGetToken(t *testing.T, router *gin.Engine, email, password string) (string, error) {
	t.Helper()

	loginPayload := map[string]string{
		"email":    email,
		"password": password,
	}
	body, _ := json.Marshal(loginPayload)

	req, _ := http.NewRequest(http.MethodPost, "/api/login", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d: %s", resp.Code, resp.Body.String())
	}

	var loginRes map[string]interface{}
	err := json.Unmarshal(resp.Body.Bytes(), &loginRes)
	if err != nil {
		return "", fmt.Errorf("failed to unmarshal login response: %w", err)
	}

	token, ok := loginRes["token"].(string)
	if !ok {
		return "", errors.New("token not found or not a string in login response")
	}
	return token, nil
}
