package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"sales-ops-api/internal/auth"
	"sales-ops-api/internal/database"
	"sales-ops-api/internal/models"
	"sales-ops-api/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupDB swaps the global connection for a fresh in-memory database.
func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	database.DB = db
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string, role models.UserRole, deptID *uint) *models.User {
	t.Helper()
	email := username + "@example.com"
	user := models.User{
		Username:     username,
		Email:        &email,
		PasswordHash: "x",
		Role:         role,
		FirstName:    "Test",
		LastName:     username,
		IsActive:     true,
		DepartmentID: deptID,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func seedDepartment(t *testing.T, db *gorm.DB, name string) *models.Department {
	t.Helper()
	dept := models.Department{Name: name, IsActive: true}
	require.NoError(t, db.Create(&dept).Error)
	return &dept
}

func tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := auth.GenerateToken(user)
	require.NoError(t, err)
	return token
}

// doJSON performs an authenticated JSON request against the router.
func doJSON(t *testing.T, r *gin.Engine, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}
