package auth

import (
	"context"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type usernameKeyType struct{}

var (
	usernameKey usernameKeyType
)

func UserFromContext(ctx context.Context) (User, bool) {
	val, ok := ctx.Value(usernameKey).(User)
	return val, ok
}

func MustHaveUser(ctx context.Context) User {
	user, found := UserFromContext(ctx)
	if !found {
		zap.S().Named("auth").Panic("failed to find user in context")
	}
	return user
}

func NewUserContext(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, usernameKey, u)
}

// User is the authenticated caller. Whether the user acts as landlord or tenant
// is decided per contract, never by the token.
type User struct {
	Username     string
	Organization string
	Scopes       []string
	Token        *jwt.Token
}

// ScrapeRunnerScope is granted to the principal that runs scrape jobs and
// reports their outcome.
const ScrapeRunnerScope = "scrape:runner"

func (u User) HasScope(scope string) bool {
	return slices.Contains(u.Scopes, scope)
}

// ParseScopes splits a space separated scope claim.
func ParseScopes(scope string) []string {
	return strings.Fields(scope)
}
