package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"workshop/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newProtectedRouter(auth *Auth, roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", auth.RequireRole(roles...), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c)+"|"+c.GetString(ContextUserRole))
	})
	return r
}

func TestRequireRole(t *testing.T) {
	auth := NewAuth(testSecret)
	router := newProtectedRouter(auth, RoleAdmin, RoleStaff)
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name     string
		header   string
		cookie   string
		wantCode int
		wantBody string
	}{
		{
			name:     "bearer token with allowed role",
			header:   "Bearer " + signToken(t, testSecret, jwt.MapClaims{"sub": "u-1", "role": RoleStaff, "exp": exp}),
			wantCode: http.StatusOK,
			wantBody: "u-1|staff",
		},
		{
			name:     "cookie token",
			cookie:   signToken(t, testSecret, jwt.MapClaims{"sub": "u-2", "role": RoleAdmin, "exp": exp}),
			wantCode: http.StatusOK,
			wantBody: "u-2|admin",
		},
		{
			name:     "missing authorization",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "malformed header",
			header:   "Token abc",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "wrong secret",
			header:   "Bearer " + signToken(t, "other", jwt.MapClaims{"sub": "u-1", "role": RoleStaff, "exp": exp}),
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "expired token",
			header:   "Bearer " + signToken(t, testSecret, jwt.MapClaims{"sub": "u-1", "role": RoleStaff, "exp": time.Now().Add(-time.Hour).Unix()}),
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "role not allowed",
			header:   "Bearer " + signToken(t, testSecret, jwt.MapClaims{"sub": "u-1", "role": RoleManager, "exp": exp}),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "no role claim",
			header:   "Bearer " + signToken(t, testSecret, jwt.MapClaims{"sub": "u-1", "exp": exp}),
			wantCode: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "access_token", Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, tt.wantCode, w.Code)
			if tt.wantBody != "" {
				require.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestRequestLogger_RequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(logger.NewNop()))
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextRequestID))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get(RequestIDHeader))
	require.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
}
