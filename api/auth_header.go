package api

import (
	"errors"
	"strings"
)

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("malformed bearer token")
)

// bearerToken returns the JWT from an "Authorization: Bearer <jwt>" value.
// The scheme is matched case-insensitively and the token must have three
// dot-separated segments.
func bearerToken(h string) (string, error) {
	h = strings.TrimSpace(h)
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errBadAuthorization
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") || strings.Count(token, ".") != 2 {
		return "", errBadAuthorization
	}
	return token, nil
}
