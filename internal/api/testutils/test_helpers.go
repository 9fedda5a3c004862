package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rongwang/rentledger/internal/api"
	"github.com/rongwang/rentledger/internal/metrics"
	"github.com/rongwang/rentledger/internal/models"
	"github.com/rongwang/rentledger/internal/repository"
	"github.com/rongwang/rentledger/internal/service"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	TestJWTSecret = "test-secret-key"
	AdminPassword = "admin-password"
	StaffPassword = "staff-password"
)

// TestContext holds all dependencies for tests
type TestContext struct {
	Router     *gin.Engine
	Repository *repository.MemoryRepository
	Service    service.Service
	Metrics    *metrics.Metrics
	JWTSecret  []byte

	AdminUserID string
	AdminJWT    string
	StaffUserID string
	StaffJWT    string
}

// SetupTestContext creates a router backed by an in-memory repository
// with one admin and one staff user
func SetupTestContext(t *testing.T) *TestContext {
	t.Helper()

	repo := repository.NewMemoryRepository()
	m := metrics.New()
	svc := service.NewDefaultService(repo, TestJWTSecret, service.WithMetrics(m))
	handler := api.NewHandler(svc, m, nil)

	gin.SetMode(gin.TestMode)
	router := gin.New()

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(TestJWTSecret))
		c.Next()
	})

	handler.SetupRoutes(router)

	adminID, adminJWT := createTestUser(t, repo, "admin", AdminPassword, service.RoleAdmin)
	staffID, staffJWT := createTestUser(t, repo, "staff", StaffPassword, service.RoleStaff)

	return &TestContext{
		Router:      router,
		Repository:  repo,
		Service:     svc,
		Metrics:     m,
		JWTSecret:   []byte(TestJWTSecret),
		AdminUserID: adminID,
		AdminJWT:    adminJWT,
		StaffUserID: staffID,
		StaffJWT:    staffJWT,
	}
}

func createTestUser(t *testing.T, repo repository.Repository, username, password, role string) (string, string) {
	t.Helper()

	// MinCost keeps the suite fast
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		ID:       uuid.New().String(),
		Username: username,
		Password: string(hashedPassword),
		Role:     role,
	}
	require.NoError(t, repo.CreateUser(context.Background(), user), "Failed to create test user")

	return user.ID, SignToken(t, user.ID, role, TestJWTSecret, time.Now().Add(24*time.Hour))
}

// SignToken issues a token the way the service does
func SignToken(t *testing.T, userID, role, secret string, expires time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  expires.Unix(),
		"iat":  time.Now().Unix(),
	})
	tokenString, err := token.SignedString([]byte(secret))
	require.NoError(t, err, "Failed to generate JWT token")
	return tokenString
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// AuthHeaders returns headers with Authorization token
func AuthHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}

// DecodeJSON unmarshals a response body into v
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), "body: %s", w.Body.String())
}
