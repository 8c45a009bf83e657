package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dealdesk/internal/config"
	"dealdesk/internal/repositories"
	"dealdesk/internal/services"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: 0, BaseURL: "http://localhost:8080"},
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
		Auth: config.AuthConfig{
			JWTSecret:     "0123456789abcdef0123456789abcdef",
			TokenTTL:      time.Minute,
			SessionMaxAge: time.Hour,
			Google:        config.ProviderConfig{Key: "k", Secret: "s", Scopes: []string{"email"}},
		},
		Realtime: config.RealtimeConfig{IntentsPerSecond: 5, IntentBurst: 10},
	}
}

func TestNewRouter_Routes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	cfg := testConfig()

	store, closeStore, err := OpenStore(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer closeStore()
	assert.IsType(t, &repositories.MemoryDealRepository{}, store)

	router, err := NewRouter(cfg, services.NewDealService(store, nil, logger), logger)
	require.NoError(t, err)

	cases := []struct {
		path   string
		status int
		body   string
	}{
		{"/healthz", http.StatusOK, `"ok"`},
		{"/api/stages", http.StatusOK, "closedWon"},
		{"/api/deals", http.StatusUnauthorized, "sign in required"},
		{"/metrics", http.StatusOK, "dealdesk_connected_pages"},
		{"/swagger/doc.json", http.StatusOK, "/api/deals"},
		{"/static/app.js", http.StatusOK, "WebSocket"},
		{"/", http.StatusOK, "Sign in with Google"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.body)
		})
	}

	// provider begin redirects to the provider
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/providers/google", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "accounts.google.com")
}

func TestNewRouter_BadSessionKeys(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.SessionKeys = []string{"not-hex"}
	_, err := NewRouter(cfg, services.NewDealService(repositories.NewMemoryDealRepository(zap.NewNop()), nil, zap.NewNop()), zap.NewNop())
	assert.Error(t, err)
}

func TestNewNotifier(t *testing.T) {
	cfg := testConfig()
	n, err := NewNotifier(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, n)

	cfg.Email = config.EmailConfig{SMTPHost: "smtp.example.com", SMTPPort: 587, FromEmail: "deals@example.com"}
	n, err = NewNotifier(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, n, 1)
}
