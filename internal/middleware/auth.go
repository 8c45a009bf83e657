package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/sessions"
	"github.com/pkg/errors"

	"dealdesk/internal/models"
	"dealdesk/internal/utils"
)

const (
	IdentityKey  = "identity"
	SessionIDKey = "session_id"

	sessionName     = "dealdesk"
	sessionIDField  = "sid"
	sessionTokField = "token"
)

type Claims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"name"`
	Email       string `json:"email"`
	Provider    string `json:"provider"`
	jwt.RegisteredClaims
}

// Tokens signs and checks identity tokens (HS256).
type Tokens struct {
	key []byte
	ttl time.Duration
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{key: []byte(secret), ttl: ttl}
}

func (t *Tokens) TTL() time.Duration {
	return t.ttl
}

func (t *Tokens) Issue(identity *models.Identity) (string, time.Time, error) {
	return t.IssueFor(identity, t.ttl)
}

func (t *Tokens) IssueFor(identity *models.Identity, ttl time.Duration) (string, time.Time, error) {
	exp := time.Now().Add(ttl)
	claims := &Claims{
		UserID:      identity.ID,
		DisplayName: identity.DisplayName,
		Email:       identity.Email,
		Provider:    identity.Provider,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "could not sign token")
	}
	return signed, exp, nil
}

func (t *Tokens) Parse(tokenStr string) (*models.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		// HMAC only
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return t.key, nil
	}, jwt.WithLeeway(2*time.Minute), jwt.WithExpirationRequired())
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, errors.New("invalid token")
	}
	return &models.Identity{
		ID:          claims.UserID,
		DisplayName: claims.DisplayName,
		Email:       claims.Email,
		Provider:    claims.Provider,
	}, nil
}

// Sessions keeps the browser session: a stable id used to route identity
// changes to open pages, and the identity token once signed in.
type Sessions struct {
	store  sessions.Store
	tokens *Tokens
	maxAge time.Duration
}

func NewSessions(store sessions.Store, tokens *Tokens, maxAge time.Duration) *Sessions {
	return &Sessions{store: store, tokens: tokens, maxAge: maxAge}
}

// ID returns the session id, creating the session when needed.
func (s *Sessions) ID(w http.ResponseWriter, r *http.Request) (string, error) {
	sess, err := s.store.Get(r, sessionName)
	if err != nil && sess == nil {
		return "", errors.WithStack(err)
	}
	if sid, ok := sess.Values[sessionIDField].(string); ok && sid != "" {
		return sid, nil
	}
	sid, err := utils.NewSessionID(16)
	if err != nil {
		return "", err
	}
	sess.Values[sessionIDField] = sid
	if err := sess.Save(r, w); err != nil {
		return "", errors.Wrap(err, "could not save session")
	}
	return sid, nil
}

// Identity returns nil when signed out or when the stored token expired.
func (s *Sessions) Identity(r *http.Request) *models.Identity {
	sess, err := s.store.Get(r, sessionName)
	if err != nil || sess == nil {
		return nil
	}
	tok, ok := sess.Values[sessionTokField].(string)
	if !ok || tok == "" {
		return nil
	}
	identity, err := s.tokens.Parse(tok)
	if err != nil {
		return nil
	}
	return identity
}

// SignIn stores identity in the session and returns the session id.
func (s *Sessions) SignIn(w http.ResponseWriter, r *http.Request, identity *models.Identity) (string, error) {
	sid, err := s.ID(w, r)
	if err != nil {
		return "", err
	}
	sess, err := s.store.Get(r, sessionName)
	if err != nil && sess == nil {
		return "", errors.WithStack(err)
	}
	tok, _, err := s.tokens.IssueFor(identity, s.maxAge)
	if err != nil {
		return "", err
	}
	sess.Values[sessionIDField] = sid
	sess.Values[sessionTokField] = tok
	if err := sess.Save(r, w); err != nil {
		return "", errors.Wrap(err, "could not save session")
	}
	return sid, nil
}

// SignOut drops the identity but keeps the session id so open pages of the
// session can be told.
func (s *Sessions) SignOut(w http.ResponseWriter, r *http.Request) (string, error) {
	sid, err := s.ID(w, r)
	if err != nil {
		return "", err
	}
	sess, err := s.store.Get(r, sessionName)
	if err != nil && sess == nil {
		return "", errors.WithStack(err)
	}
	delete(sess.Values, sessionTokField)
	if err := sess.Save(r, w); err != nil {
		return "", errors.Wrap(err, "could not save session")
	}
	return sid, nil
}

func bearerToken(c *gin.Context) string {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Identify puts the caller's identity into the context when there is one:
// a bearer token wins over the session cookie.
func Identify(tokens *Tokens, sess *Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		if tok := bearerToken(c); tok != "" {
			identity, err := tokens.Parse(tok)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
				return
			}
			c.Set(IdentityKey, identity)
			c.Next()
			return
		}
		if identity := sess.Identity(c.Request); identity != nil {
			c.Set(IdentityKey, identity)
		}
		c.Next()
	}
}

func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetIdentity(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sign in required"})
			return
		}
		c.Next()
	}
}

func GetIdentity(c *gin.Context) *models.Identity {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*models.Identity)
	return identity
}
