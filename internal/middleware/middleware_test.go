package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/pkg/logging"
	"storefront/internal/repository"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// =====================
// レスポンス確認用
// =====================

type mwErrorResponse struct {
	Error string `json:"error"`
}

type mwOKResponse struct {
	UserID       int64  `json:"user_id"`
	Role         string `json:"role"`
	TokenVersion int    `json:"token_version"`
}

// =====================
// UserRepository モック
// =====================

type MockUserRepo struct {
	repository.UserRepository
	mock.Mock
}

func (m *MockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

// =====================
// helper
// =====================

const secret = "test-secret"

func mustToken(t *testing.T, userID int64, role string, tv int) string {
	t.Helper()
	raw, err := auth.IssueAccessToken(secret, userID, role, tv, time.Hour, time.Now())
	require.NoError(t, err)
	return raw
}

func runRequest(t *testing.T, e *echo.Echo, method, path, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeMWError(t *testing.T, rec *httptest.ResponseRecorder) mwErrorResponse {
	t.Helper()
	var r mwErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&r))
	return r
}

func echoPrincipal(c echo.Context) error {
	return c.JSON(http.StatusOK, mwOKResponse{
		UserID:       c.Get(middleware.CtxUserIDKey).(int64),
		Role:         c.Get(middleware.CtxUserRoleKey).(string),
		TokenVersion: c.Get(middleware.CtxTokenVersionKey).(int),
	})
}

// =====================
// AuthJWT
// =====================

func TestAuthJWT_Unauthorized(t *testing.T) {
	e := echo.New()
	cfg := config.Config{JWTSecret: secret}
	e.GET("/protected", echoPrincipal, middleware.AuthJWT(cfg))

	other, err := auth.IssueAccessToken("wrong-secret", 1, "USER", 0, time.Hour, time.Now())
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"bad scheme", "Token abc.def.ghi"},
		{"empty bearer", "Bearer   "},
		{"bad signature", "Bearer " + other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := runRequest(t, e, http.MethodGet, "/protected", tt.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "unauthorized", decodeMWError(t, rec).Error)
		})
	}
}

// 正常：ctxに値が入る
func TestAuthJWT_SetsContext(t *testing.T) {
	e := echo.New()
	e.GET("/protected", echoPrincipal, middleware.AuthJWT(config.Config{JWTSecret: secret}))

	rec := runRequest(t, e, http.MethodGet, "/protected", "Bearer "+mustToken(t, 123, "USER", 7))
	require.Equal(t, http.StatusOK, rec.Code)

	var body mwOKResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, mwOKResponse{UserID: 123, Role: "USER", TokenVersion: 7}, body)
}

// =====================
// TokenVersionGuard
// =====================

func TestTokenVersionGuard(t *testing.T) {
	tests := []struct {
		name string
		user *model.User
		err  error
		want int
	}{
		{"match", &model.User{ID: 5, TokenVersion: 2, IsActive: true}, nil, http.StatusOK},
		{"stale token", &model.User{ID: 5, TokenVersion: 3, IsActive: true}, nil, http.StatusUnauthorized},
		{"inactive user", &model.User{ID: 5, TokenVersion: 2, IsActive: false}, nil, http.StatusUnauthorized},
		{"missing user", nil, repository.ErrNotFound, http.StatusUnauthorized},
		{"db error", nil, errors.New("db down"), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockUserRepo{}
			repo.On("FindByID", mock.Anything, int64(5)).Return(tt.user, tt.err)

			e := echo.New()
			e.GET("/p", echoPrincipal, middleware.AuthJWT(config.Config{JWTSecret: secret}), middleware.TokenVersionGuard(repo))

			rec := runRequest(t, e, http.MethodGet, "/p", "Bearer "+mustToken(t, 5, "USER", 2))
			assert.Equal(t, tt.want, rec.Code)
			repo.AssertExpectations(t)
		})
	}
}

// =====================
// AdminRoleGuard
// =====================

func TestAdminRoleGuard(t *testing.T) {
	e := echo.New()
	e.GET("/admin", echoPrincipal, middleware.AuthJWT(config.Config{JWTSecret: secret}), middleware.AdminRoleGuard())

	rec := runRequest(t, e, http.MethodGet, "/admin", "Bearer "+mustToken(t, 1, "USER", 0))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "admin only", decodeMWError(t, rec).Error)

	rec = runRequest(t, e, http.MethodGet, "/admin", "Bearer "+mustToken(t, 1, "ADMIN", 0))
	assert.Equal(t, http.StatusOK, rec.Code)

	// AuthJWTを通していない
	e2 := echo.New()
	e2.GET("/admin", echoPrincipal, middleware.AdminRoleGuard())
	rec = runRequest(t, e2, http.MethodGet, "/admin", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// =====================
// Observability
// =====================

func TestObservability_LogsAndCounts(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := metrics.New()

	e := echo.New()
	e.Use(echomw.RequestID())
	e.Use(middleware.Observability(zap.New(core), m))
	e.GET("/orders/:id", func(c echo.Context) error {
		// ハンドラからもリクエストのロガーが取れる
		logging.FromContext(c.Request().Context()).Info("inside")
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/boom", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadGateway, "upstream")
	})

	rec := runRequest(t, e, http.MethodGet, "/orders/42", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rid := rec.Header().Get(echo.HeaderXRequestID)
	require.NotEmpty(t, rid)

	inside := logs.FilterMessage("inside").All()
	require.Len(t, inside, 1)
	assert.Equal(t, rid, inside[0].ContextMap()["request_id"])

	reqLines := logs.FilterMessage("http_request").All()
	require.Len(t, reqLines, 1)
	fields := reqLines[0].ContextMap()
	assert.Equal(t, "/orders/:id", fields["route"])
	assert.Equal(t, int64(http.StatusNoContent), fields["status"])

	rec = runRequest(t, e, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	errLines := logs.FilterMessage("http_request").FilterField(zap.Int("status", http.StatusBadGateway)).All()
	require.Len(t, errLines, 1)
	assert.Equal(t, zap.ErrorLevel, errLines[0].Level)

	mfs, err := m.Registry.Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range mfs {
		if mf.GetName() == "storefront_http_requests_total" {
			found = true
			assert.Len(t, mf.GetMetric(), 2)
		}
	}
	assert.True(t, found)
}
