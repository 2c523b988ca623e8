package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundportal/internal/util"
	"fundportal/pkg/rbac"
)

const testSecret = "test-secret"

func newProtectedRouter(permission string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	group := r.Group("/")
	group.Use(AuthMiddleware(testSecret))
	if permission != "" {
		group.Use(RequirePermission(permission))
	}
	group.GET("/protected", func(c *gin.Context) {
		userID := c.GetInt("user_id")
		role := c.GetString("role")
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "role": role})
	})
	return r
}

func doRequest(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	r := newProtectedRouter("")
	w := doRequest(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareRejectsInvalidToken(t *testing.T) {
	r := newProtectedRouter("")
	w := doRequest(r, "not-a-valid-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareRejectsWrongSecret(t *testing.T) {
	token, err := util.GenerateJWT(7, rbac.RoleCentralAdmin, "other-secret")
	require.NoError(t, err)

	r := newProtectedRouter("")
	w := doRequest(r, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewarePassesClaimsThrough(t *testing.T) {
	token, err := util.GenerateJWT(7, rbac.RoleStateNodal, testSecret)
	require.NoError(t, err)

	r := newProtectedRouter("")
	w := doRequest(r, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7,"role":"state_nodal"}`, w.Body.String())
}

func TestRequirePermissionAllowsAuthorizedRole(t *testing.T) {
	token, err := util.GenerateJWT(7, rbac.RoleStateNodal, testSecret)
	require.NoError(t, err)

	r := newProtectedRouter(rbac.PermissionResolveEscalation)
	w := doRequest(r, token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequirePermissionRejectsUnauthorizedRole(t *testing.T) {
	token, err := util.GenerateJWT(7, rbac.RoleExecutingAgency, testSecret)
	require.NoError(t, err)

	r := newProtectedRouter(rbac.PermissionResolveEscalation)
	w := doRequest(r, token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequirePermissionRejectsSweepForNonAdmin(t *testing.T) {
	token, err := util.GenerateJWT(7, rbac.RoleDistrictOfficer, testSecret)
	require.NoError(t, err)

	r := newProtectedRouter(rbac.PermissionRunSweep)
	w := doRequest(r, token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestTraceMiddlewareEchoesHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TraceMiddleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Trace-ID", "abc123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc123", w.Header().Get("X-Trace-ID"))
}

func TestTraceMiddlewareGeneratesID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TraceMiddleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
}
