package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/coursemart/internal/config"
)

const DefaultCookieName = "_sid"

var (
	ErrInvalidToken     = errors.New("invalid_token")
	ErrVerifierDisabled = errors.New("token_verifier_disabled")
)

// Claims are the identity token claims issued by the identity provider.
type Claims struct {
	Role      string `json:"role"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Verifier validates identity tokens and turns them into viewers.
type Verifier struct {
	secret     []byte
	issuer     string
	cookieName string
}

func NewVerifier(cfg config.Config) *Verifier {
	return &Verifier{
		secret:     []byte(cfg.Auth.JWTSecret),
		issuer:     cfg.Auth.JWTIssuer,
		cookieName: DefaultCookieName,
	}
}

func (v *Verifier) Enabled() bool {
	return v != nil && len(v.secret) > 0
}

// ReadToken extracts a bearer token, falling back to the session cookie.
func (v *Verifier) ReadToken(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		token := strings.TrimSpace(header[7:])
		return token, token != ""
	}
	cookie, err := r.Cookie(v.cookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return "", false
	}
	return strings.TrimSpace(cookie.Value), true
}

func (v *Verifier) Verify(tokenString string) (Viewer, error) {
	if !v.Enabled() {
		return Viewer{}, ErrVerifierDisabled
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Viewer{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Viewer{}, ErrInvalidToken
	}

	accountID, err := snowflake.ParseString(strings.TrimSpace(claims.Subject))
	if err != nil || accountID == 0 {
		return Viewer{}, fmt.Errorf("%w: subject is not an account id", ErrInvalidToken)
	}

	return Viewer{
		AccountID: accountID,
		Role:      ParseRole(claims.Role),
		SessionID: claims.SessionID,
	}, nil
}

// Sign issues a token for viewer. Used by local tooling and tests; production
// tokens come from the identity provider.
func (v *Verifier) Sign(viewer Viewer, ttl time.Duration) (string, error) {
	if !v.Enabled() {
		return "", ErrVerifierDisabled
	}
	now := time.Now()
	claims := Claims{
		Role:      string(viewer.Role),
		SessionID: viewer.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   viewer.AccountID.String(),
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// FromGin resolves the viewer attached to a gin request, if any.
func FromGin(c *gin.Context) (Viewer, bool) {
	return ViewerFromContext(c.Request.Context())
}
