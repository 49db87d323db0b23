package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DevUserHeader and DevOrgHeader let a developer act as another user when
	// authentication is disabled.
	DevUserHeader = "X-Lease-User"
	DevOrgHeader  = "X-Lease-Org"
	// DevScopeHeader holds space separated scopes, e.g. "scrape:runner".
	DevScopeHeader = "X-Lease-Scope"

	defaultUser = "admin"
	defaultOrg  = "internal"
)

type NoneAuthenticator struct{}

func NewNoneAuthenticator() (*NoneAuthenticator, error) {
	return &NoneAuthenticator{}, nil
}

func (n *NoneAuthenticator) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := User{
			Username:     defaultUser,
			Organization: defaultOrg,
		}
		if u := r.Header.Get(DevUserHeader); u != "" {
			user.Username = u
		}
		if o := r.Header.Get(DevOrgHeader); o != "" {
			user.Organization = o
		}
		user.Scopes = ParseScopes(r.Header.Get(DevScopeHeader))

		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"org_id": user.Organization,
			"sub":    user.Username,
			"scope":  strings.Join(user.Scopes, " "),
		})
		token.Raw = "fake-raw-token"
		user.Token = token

		ctx := NewUserContext(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
