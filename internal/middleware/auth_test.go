package middleware

import (
	"civics_quiz_backend/internal/config"
	"civics_quiz_backend/internal/model"
	"civics_quiz_backend/internal/util"
	"civics_quiz_backend/pkg/logger"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func testConfig() *config.Config {
	return &config.Config{JWT: config.JWTConfig{Secret: "middleware-test-secret"}}
}

func actorRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/actor", TryAuthMiddleware(cfg), GuestMiddleware(), func(c *gin.Context) {
		actor := util.ActorFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user": actor.UserID, "guest": actor.GuestID})
	})
	r.GET("/private", AuthMiddleware(cfg), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestGuestMiddlewareIssuesAndKeepsID(t *testing.T) {
	r := actorRouter(testConfig())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/actor", nil))
	issued := rec.Header().Get(util.GuestHeaderName)
	if _, err := uuid.Parse(issued); err != nil {
		t.Fatalf("issued guest id %q: %v", issued, err)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Fatalf("guest cookie not set")
	}

	req := httptest.NewRequest(http.MethodGet, "/actor", nil)
	req.AddCookie(&http.Cookie{Name: util.GuestCookieName, Value: issued})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get(util.GuestHeaderName); got != issued {
		t.Fatalf("guest id from cookie = %q, want %q", got, issued)
	}

	req = httptest.NewRequest(http.MethodGet, "/actor", nil)
	req.Header.Set(util.GuestHeaderName, "not-a-uuid")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get(util.GuestHeaderName); got == "not-a-uuid" {
		t.Fatalf("malformed guest ids must be replaced")
	}
}

func TestTryAuthPrefersUser(t *testing.T) {
	cfg := testConfig()
	r := actorRouter(cfg)
	token, err := util.GenerateJWT(&model.User{BaseModel: model.BaseModel{ID: 7}}, cfg.JWT.Secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/actor", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if body := rec.Body.String(); body != `{"guest":"","user":7}` {
		t.Fatalf("actor = %s", body)
	}

	// 无效 token 按游客处理
	req = httptest.NewRequest(http.MethodGet, "/actor?token=garbage", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Header().Get(util.GuestHeaderName) == "" {
		t.Fatalf("invalid token should fall back to guest, code %d", rec.Code)
	}
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	r := actorRouter(testConfig())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401", rec.Code)
	}
}

func TestActorFieldsReachRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	prev := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = prev })

	cfg := testConfig()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/log", TryAuthMiddleware(cfg), GuestMiddleware(), func(c *gin.Context) {
		logger.With(c.Request.Context()).Info("handled")
		c.Status(http.StatusOK)
	})

	guest := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/log", nil)
	req.Header.Set(util.GuestHeaderName, guest)
	r.ServeHTTP(httptest.NewRecorder(), req)

	token, err := util.GenerateJWT(&model.User{BaseModel: model.BaseModel{ID: 9}}, cfg.JWT.Secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/log", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if got := entries[0].ContextMap()["guest_id"]; got != guest {
		t.Fatalf("guest request guest_id = %v, want %s", got, guest)
	}
	user := entries[1].ContextMap()
	if user["user_id"] != uint64(9) {
		t.Fatalf("user request user_id = %v (%T), want 9", user["user_id"], user["user_id"])
	}
	if _, ok := user["guest_id"]; ok {
		t.Fatalf("signed-in request should not log a guest id: %v", user)
	}
}
