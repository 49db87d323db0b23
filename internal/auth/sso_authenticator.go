package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	keyfunc "github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// SSOAuthenticator validates RS256 tokens issued by an OpenID provider whose
// keys are published as a JWK set.
type SSOAuthenticator struct {
	keyFn func(t *jwt.Token) (any, error)
}

func NewSSOAuthenticatorWithKeyFn(keyFn func(t *jwt.Token) (any, error)) (*SSOAuthenticator, error) {
	return &SSOAuthenticator{keyFn: keyFn}, nil
}

func NewSSOAuthenticator(ctx context.Context, jwkCertUrl string) (*SSOAuthenticator, error) {
	if jwkCertUrl == "" {
		return nil, errors.New("sso authentication needs a jwk url")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwkCertUrl})
	if err != nil {
		return nil, fmt.Errorf("failed to get sso public keys: %w", err)
	}

	return &SSOAuthenticator{keyFn: k.Keyfunc}, nil
}

func (s *SSOAuthenticator) Authenticate(token string) (User, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name}), jwt.WithIssuedAt(), jwt.WithExpirationRequired())
	t, err := parser.Parse(token, s.keyFn)
	if err != nil {
		return User{}, fmt.Errorf("failed to authenticate token: %w", err)
	}

	if !t.Valid {
		return User{}, fmt.Errorf("failed to parse or validate token")
	}

	return s.parseToken(t)
}

func (s *SSOAuthenticator) parseToken(userToken *jwt.Token) (User, error) {
	claims, ok := userToken.Claims.(jwt.MapClaims)
	if !ok {
		return User{}, errors.New("failed to parse jwt token claims")
	}

	username := firstClaim(claims, "preferred_username", "username", "sub")
	if username == "" {
		return User{}, errors.New("token has no username")
	}

	orgID := firstClaim(claims, "org_id")
	if orgID == "" {
		// users outside an organization are grouped by their email domain
		email := firstClaim(claims, "email")
		_, domain, found := strings.Cut(email, "@")
		if !found || domain == "" {
			return User{}, fmt.Errorf("token of %s has neither an organization nor a valid email", username)
		}
		orgID = domain
	}

	return User{
		Username:     username,
		Organization: orgID,
		Scopes:       ParseScopes(firstClaim(claims, "scope")),
		Token:        userToken,
	}, nil
}

func firstClaim(claims jwt.MapClaims, names ...string) string {
	for _, n := range names {
		if v, ok := claims[n].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func (s *SSOAuthenticator) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accessToken, ok := bearerToken(r)
		if !ok {
			http.Error(w, "No token provided", http.StatusUnauthorized)
			return
		}

		user, err := s.Authenticate(accessToken)
		if err != nil {
			zap.S().Named("auth").Debugw("sso authentication failed", "error", err)
			http.Error(w, "authentication failed", http.StatusUnauthorized)
			return
		}

		ctx := NewUserContext(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
