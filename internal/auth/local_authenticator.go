package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const localIssuer = "lease-planner"

// LocalClaims are carried by tokens signed with the service's own key.
type LocalClaims struct {
	OrgID string `json:"org_id"`
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// LocalAuthenticator validates HS256 tokens signed with a shared key.
type LocalAuthenticator struct {
	key []byte
}

func NewLocalAuthenticator(signingKey string) (*LocalAuthenticator, error) {
	if signingKey == "" {
		return nil, errors.New("local authentication needs a signing key")
	}
	return &LocalAuthenticator{key: []byte(signingKey)}, nil
}

// IssueToken signs a token for username valid for ttl, granting scopes.
func (l *LocalAuthenticator) IssueToken(username, orgID string, ttl time.Duration, scopes ...string) (string, error) {
	if username == "" || orgID == "" {
		return "", errors.New("a token needs a username and an organization")
	}

	now := time.Now()
	claims := LocalClaims{
		OrgID: orgID,
		Scope: strings.Join(scopes, " "),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    localIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(l.key)
}

func (l *LocalAuthenticator) Authenticate(token string) (User, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(localIssuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	)

	var claims LocalClaims
	t, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return l.key, nil
	})
	if err != nil {
		return User{}, fmt.Errorf("failed to authenticate token: %w", err)
	}

	if claims.Subject == "" || claims.OrgID == "" {
		return User{}, errors.New("token is missing the subject or the organization")
	}

	return User{
		Username:     claims.Subject,
		Organization: claims.OrgID,
		Scopes:       ParseScopes(claims.Scope),
		Token:        t,
	}, nil
}

func (l *LocalAuthenticator) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accessToken, ok := bearerToken(r)
		if !ok {
			http.Error(w, "No token provided", http.StatusUnauthorized)
			return
		}

		user, err := l.Authenticate(accessToken)
		if err != nil {
			zap.S().Named("auth").Debugw("local authentication failed", "error", err)
			http.Error(w, "authentication failed", http.StatusUnauthorized)
			return
		}

		ctx := NewUserContext(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
