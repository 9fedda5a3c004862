package api_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/rongwang/rentledger/internal/api/testutils"
	"github.com/rongwang/rentledger/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestLogin(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	// Test case 1: Successful login
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/login",
		models.LoginRequest{Username: "admin", Password: testutils.AdminPassword},
		nil,
	)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.AuthResponse
	testutils.DecodeJSON(t, w, &resp)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "admin", resp.Role)

	// The issued token is accepted by the auth middleware
	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/buildings", nil, testutils.AuthHeaders(resp.Token))
	assert.Equal(t, http.StatusOK, w.Code)

	// Test case 2: Invalid credentials
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/login",
		models.LoginRequest{Username: "admin", Password: "wrongpassword"},
		nil,
	)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Test case 3: User not found
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/login",
		models.LoginRequest{Username: "nobody", Password: testutils.AdminPassword},
		nil,
	)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Test case 4: Missing fields
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/login",
		models.LoginRequest{Username: "admin"},
		nil,
	)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignUp(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	signupReq := models.SignUpRequest{
		Username: "night-manager",
		Password: "Password123",
		Role:     "staff",
	}

	// Test case 1: Admin creates a user
	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/users", signupReq, testutils.AuthHeaders(testCtx.AdminJWT))
	assert.Equal(t, http.StatusCreated, w.Code)

	// Test case 2: Duplicate username
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/users", signupReq, testutils.AuthHeaders(testCtx.AdminJWT))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var errResp models.ErrorResponse
	testutils.DecodeJSON(t, w, &errResp)
	assert.Equal(t, "VALIDATION_ERROR", errResp.Code)

	// Test case 3: Staff cannot create users
	signupReq.Username = "someone-else"
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/users", signupReq, testutils.AuthHeaders(testCtx.StaffJWT))
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Test case 4: Password too short
	signupReq.Password = "short"
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/users", signupReq, testutils.AuthHeaders(testCtx.AdminJWT))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthMiddleware(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	tests := []struct {
		name    string
		headers map[string]string
	}{
		{"no header", nil},
		{"wrong scheme", map[string]string{"Authorization": "Basic abc"}},
		{"garbage token", testutils.AuthHeaders("not-a-jwt")},
		{"wrong secret", testutils.AuthHeaders(testutils.SignToken(t, testCtx.StaffUserID, "staff", "other-secret", time.Now().Add(time.Hour)))},
		{"expired", testutils.AuthHeaders(testutils.SignToken(t, testCtx.StaffUserID, "staff", testutils.TestJWTSecret, time.Now().Add(-time.Hour)))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/buildings", nil, tt.headers)
			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var errResp models.ErrorResponse
			testutils.DecodeJSON(t, w, &errResp)
			assert.Equal(t, "UNAUTHORIZED", errResp.Code)
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	w := testutils.PerformRequest(testCtx.Router, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{route="/healthz",status="200"} 1`)
}
