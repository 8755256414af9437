package auth

import (
	"net/http"
	"strings"
)

// TokenAuthenticator authenticates websocket handshake requests with a signed
// identity token, supplied either as a bearer token in the Authorization
// header or as a "token" query parameter (browsers cannot set headers on
// websocket upgrades).
type TokenAuthenticator struct {
	options TokenOptions
}

func NewTokenAuthenticator(options TokenOptions) *TokenAuthenticator {
	return &TokenAuthenticator{options: options}
}

// Authenticate returns the verified user id of the request.
// It satisfies the hub's Authenticator interface.
func (a *TokenAuthenticator) Authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := extractToken(r)
	if token == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return "", false
	}

	claims, err := VerifyToken(token, a.options)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return "", false
	}

	return claims.Subject, true
}

func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return token
		}
	}
	return r.URL.Query().Get("token")
}
