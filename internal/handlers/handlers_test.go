package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"dealdesk/internal/config"
	"dealdesk/internal/middleware"
	"dealdesk/internal/models"
	"dealdesk/internal/pdf"
	"dealdesk/internal/realtime"
	"dealdesk/internal/repositories"
	"dealdesk/internal/services"
	"dealdesk/internal/web"
)

const testPassword = "s3cret"

var (
	alice = &models.Identity{ID: "local:alice@example.com", DisplayName: "Alice", Email: "alice@example.com", Provider: "local"}
	bob   = &models.Identity{ID: "github:7", DisplayName: "Bob", Provider: "github"}
)

type testEnv struct {
	router  *gin.Engine
	tokens  *middleware.Tokens
	sess    *middleware.Sessions
	hub     *realtime.IdentityHub
	service *services.DealService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	store := repositories.NewMemoryDealRepository(logger)
	svc := services.NewDealService(store, nil, logger)
	tokens := middleware.NewTokens("test-secret", time.Minute)
	sess := middleware.NewSessions(sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef")), tokens, time.Hour)
	hub := realtime.NewIdentityHub()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	accounts := []*config.LocalAccount{{Email: "alice@example.com", DisplayName: "Alice", PasswordHash: string(hash)}}

	auth := NewAuthHandler(sess, tokens, hub, accounts, []Provider{{ID: "google", Label: "Google"}}, logger)
	deals := NewDealHandler(svc, pdf.NewDealListGenerator(""), logger)
	page := NewPageHandler(svc, sess, hub, auth, web.PageTemplate(), realtime.NewUpgrader(nil), 0, 0, logger)

	identify := middleware.Identify(tokens, sess)
	r := gin.New()
	r.GET("/", page.Index)
	r.GET("/ws", page.Live)
	r.POST("/auth/local", auth.LocalSignIn)
	r.POST("/auth/signout", auth.SignOut)
	r.POST("/auth/token", identify, auth.Token)
	r.GET("/auth/me", identify, auth.Me)
	api := r.Group("/api", identify)
	api.GET("/stages", deals.Stages)
	api.GET("/deals", deals.List)
	api.POST("/deals", deals.Create)
	api.GET("/deals/:id", deals.GetByID)
	api.PUT("/deals/:id", deals.Update)
	api.DELETE("/deals/:id", deals.Delete)
	r.GET("/deals/export.pdf", identify, deals.ExportPDF)

	return &testEnv{router: r, tokens: tokens, sess: sess, hub: hub, service: svc}
}

func (e *testEnv) bearer(t *testing.T, identity *models.Identity) string {
	t.Helper()
	tok, _, err := e.tokens.Issue(identity)
	require.NoError(t, err)
	return "Bearer " + tok
}

func (e *testEnv) do(method, path, auth string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// lastCookie returns the last session cookie written, skipping the provider
// session cookie goth writes.
func lastCookie(w *httptest.ResponseRecorder) *http.Cookie {
	var last *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "dealdesk" {
			last = c
		}
	}
	return last
}
