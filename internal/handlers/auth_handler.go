package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"dealdesk/internal/config"
	"dealdesk/internal/middleware"
	"dealdesk/internal/models"
	"dealdesk/internal/realtime"
)

// Provider is a configured external sign-in option shown on the page.
type Provider struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type AuthHandler struct {
	sessions  *middleware.Sessions
	tokens    *middleware.Tokens
	hub       *realtime.IdentityHub
	accounts  map[string]*config.LocalAccount
	providers []Provider
	logger    *zap.Logger
}

func NewAuthHandler(
	sessions *middleware.Sessions,
	tokens *middleware.Tokens,
	hub *realtime.IdentityHub,
	accounts []*config.LocalAccount,
	providers []Provider,
	logger *zap.Logger,
) *AuthHandler {
	byEmail := make(map[string]*config.LocalAccount, len(accounts))
	for _, a := range accounts {
		byEmail[strings.ToLower(strings.TrimSpace(a.Email))] = a
	}
	return &AuthHandler{
		sessions:  sessions,
		tokens:    tokens,
		hub:       hub,
		accounts:  byEmail,
		providers: providers,
		logger:    logger.Named("auth"),
	}
}

func (h *AuthHandler) Providers() []Provider {
	return h.providers
}

func (h *AuthHandler) LocalEnabled() bool {
	return len(h.accounts) > 0
}

// BeginProvider redirects to the provider's consent page.
func (h *AuthHandler) BeginProvider(c *gin.Context) {
	r := gothic.GetContextWithProvider(c.Request, c.Param("provider"))
	gothic.BeginAuthHandler(c.Writer, r)
}

// ProviderCallback completes an OAuth round trip and signs the session in.
func (h *AuthHandler) ProviderCallback(c *gin.Context) {
	provider := c.Param("provider")
	r := gothic.GetContextWithProvider(c.Request, provider)
	gothUser, err := gothic.CompleteUserAuth(c.Writer, r)
	if err != nil {
		h.logger.Error("could not complete user auth", zap.String("provider", provider), zap.Error(errors.WithStack(err)))
		c.Redirect(http.StatusSeeOther, "/?notice=signin_failed")
		return
	}
	if gothUser.UserID == "" {
		h.logger.Error("provider returned no user id", zap.String("provider", provider))
		c.Redirect(http.StatusSeeOther, "/?notice=signin_failed")
		return
	}

	identity := &models.Identity{
		ID:          gothUser.Provider + ":" + gothUser.UserID,
		DisplayName: displayName(gothUser),
		Email:       gothUser.Email,
		Provider:    gothUser.Provider,
	}
	if err := h.signIn(c, identity); err != nil {
		h.logger.Error("could not store session identity", zap.Error(err))
		c.Redirect(http.StatusSeeOther, "/?notice=signin_failed")
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// @Summary      Sign in with a local account
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        login  body      models.LoginRequest  true  "Email and password"
// @Success      200    {object}  models.Identity
// @Failure      400    {object}  errorResponse
// @Failure      401    {object}  errorResponse
// @Router       /auth/local [post]
func (h *AuthHandler) LocalSignIn(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	account, ok := h.accounts[email]
	if !ok {
		h.logger.Info("local sign-in for unknown account", zap.String("email", email))
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "Invalid email or password"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		h.logger.Info("local sign-in password mismatch", zap.String("email", email))
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "Invalid email or password"})
		return
	}

	name := account.DisplayName
	if name == "" {
		name = account.Email
	}
	identity := &models.Identity{
		ID:          "local:" + email,
		DisplayName: name,
		Email:       account.Email,
		Provider:    "local",
	}
	if err := h.signIn(c, identity); err != nil {
		h.logger.Error("could not store session identity", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "Sign-in failed"})
		return
	}
	c.JSON(http.StatusOK, identity)
}

// @Summary      Sign the session out
// @Tags         Auth
// @Success      204
// @Failure      500  {object}  errorResponse
// @Router       /auth/signout [post]
func (h *AuthHandler) SignOut(c *gin.Context) {
	sid, err := h.sessions.SignOut(c.Writer, c.Request)
	if err != nil {
		h.logger.Error("could not sign out", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "Sign-out failed"})
		return
	}
	if err := gothic.Logout(c.Writer, c.Request); err != nil {
		h.logger.Debug("could not clear provider session", zap.Error(err))
	}
	pages := h.hub.Publish(sid, nil)
	h.logger.Debug("signed out", zap.Int("pages", pages))
	c.Status(http.StatusNoContent)
}

// @Summary      Issue an API token for the signed-in session
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  tokenResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/token [post]
func (h *AuthHandler) Token(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	tok, exp, err := h.tokens.Issue(identity)
	if err != nil {
		h.logger.Error("could not issue token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	c.JSON(http.StatusOK, tokenResponse{AccessToken: tok, TokenType: "Bearer", ExpiresAt: exp})
}

// @Summary      Current identity
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  models.Identity
// @Failure      401  {object}  errorResponse
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, identity)
}

func (h *AuthHandler) signIn(c *gin.Context, identity *models.Identity) error {
	sid, err := h.sessions.SignIn(c.Writer, c.Request, identity)
	if err != nil {
		return err
	}
	pages := h.hub.Publish(sid, identity)
	h.logger.Info("signed in", zap.String("user_id", identity.ID), zap.Int("pages", pages))
	return nil
}

func displayName(user goth.User) string {
	switch {
	case user.Name != "":
		return user.Name
	case user.NickName != "":
		return user.NickName
	case strings.TrimSpace(user.FirstName+" "+user.LastName) != "":
		return strings.TrimSpace(user.FirstName + " " + user.LastName)
	case user.Email != "":
		return user.Email
	}
	return user.UserID
}
