package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cbms_backend/internal/db/dbtest"
	"cbms_backend/internal/domain"
	"cbms_backend/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const secret = "test-secret"

func init() { gin.SetMode(gin.TestMode) }

func newRouter(gdb *gorm.DB, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger())
	handlers := append([]gin.HandlerFunc{JWTAuthMiddleware(gdb, secret)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, gin.H{"username": u.Username})
	})
	r.GET("/me", handlers...)
	return r
}

func get(t *testing.T, r http.Handler, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func token(t *testing.T, id uint, kind string) string {
	t.Helper()
	tok, err := utils.GenerateJWT(id, kind, secret, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestJWTAuthMiddleware(t *testing.T) {
	gdb := dbtest.New(t)
	user := dbtest.CreateUser(t, gdb, "asha", domain.RoleMember)
	r := newRouter(gdb)

	t.Run("missing header", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(t, r, "").Code)
	})
	t.Run("refresh token refused", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(t, r, token(t, user.ID, utils.RefreshToken)).Code)
	})
	t.Run("unknown user", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(t, r, token(t, 999, utils.AccessToken)).Code)
	})
	t.Run("valid access token", func(t *testing.T) {
		w := get(t, r, token(t, user.ID, utils.AccessToken))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"asha"`)
		assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	})
	t.Run("inactive user", func(t *testing.T) {
		require.NoError(t, gdb.Model(user).Update("is_active", false).Error)
		assert.Equal(t, http.StatusUnauthorized, get(t, r, token(t, user.ID, utils.AccessToken)).Code)
	})
}

func TestRequireRole(t *testing.T) {
	gdb := dbtest.New(t)
	admin := dbtest.CreateUser(t, gdb, "admin", domain.RoleAdmin)
	leader := dbtest.CreateUser(t, gdb, "leader", domain.RoleResponsibleMember)
	member := dbtest.CreateUser(t, gdb, "member", domain.RoleMember)

	adminOnly := newRouter(gdb, AdminOnlyMiddleware())
	assert.Equal(t, http.StatusOK, get(t, adminOnly, token(t, admin.ID, utils.AccessToken)).Code)
	assert.Equal(t, http.StatusForbidden, get(t, adminOnly, token(t, member.ID, utils.AccessToken)).Code)

	leaders := newRouter(gdb, RequireRole(domain.RoleAdmin, domain.RoleResponsibleMember))
	assert.Equal(t, http.StatusOK, get(t, leaders, token(t, leader.ID, utils.AccessToken)).Code)
	assert.Equal(t, http.StatusForbidden, get(t, leaders, token(t, member.ID, utils.AccessToken)).Code)
}

func TestRequestLoggerKeepsUpstreamID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestInvalidateOnWrite(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := gin.New()
	r.Use(InvalidateOnWrite(rdb, utils.DashboardPrefix))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.POST("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	serve := func(method, path string) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	}

	require.NoError(t, utils.SetCache(ctx, rdb, utils.DashboardStatsKey, 1, time.Minute))
	serve(http.MethodGet, "/x")
	assert.True(t, mr.Exists(utils.DashboardStatsKey))
	serve(http.MethodPost, "/bad")
	assert.True(t, mr.Exists(utils.DashboardStatsKey))
	serve(http.MethodPost, "/x")
	assert.False(t, mr.Exists(utils.DashboardStatsKey))
}
