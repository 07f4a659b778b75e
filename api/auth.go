package api

import (
	"errors"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

// orgClaim carries the organization a token acts for. Tokens without it fall
// back to the subject, so personal accounts form their own organization.
const orgClaim = "org_id"

// Auth validates incoming JWT tokens.
type Auth struct {
	JWKS     *keyfunc.JWKS
	Audience string
	Issuer   string

	testSecret  []byte
	parser      *jwt.Parser
	keyCache    sync.Map
	keyCacheTTL time.Duration
}

type cachedKey struct {
	key       any
	expiresAt time.Time
}

// NewAuth validates RS256 tokens against jwks. Keys are memoized per kid for
// cacheTTL; zero disables the memo.
func NewAuth(jwks *keyfunc.JWKS, audience, issuer string, cacheTTL time.Duration) *Auth {
	return &Auth{
		JWKS:        jwks,
		Audience:    audience,
		Issuer:      issuer,
		parser:      jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})),
		keyCacheTTL: cacheTTL,
	}
}

// NewTestAuth validates HS256 tokens signed with secret.
func NewTestAuth(secret []byte) *Auth {
	return &Auth{
		testSecret: secret,
		parser:     jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

// OrgIDFromAuthHeader extracts the organization from the Authorization header.
func (a *Auth) OrgIDFromAuthHeader(h string) (string, error) {
	if h == "" {
		return "", errMissingAuthorization
	}
	token, err := bearerToken(h)
	if err != nil {
		return "", err
	}
	return a.OrgIDFromToken(token)
}

// OrgIDFromToken validates a raw bearer token.
func (a *Auth) OrgIDFromToken(token string) (string, error) {
	if token == "" {
		return "", errBadAuthorization
	}
	parsed, err := a.parser.Parse(token, a.key)
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}

	now := time.Now().Add(time.Minute).Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return "", errors.New("token expired")
	}
	if !claims.VerifyNotBefore(now, false) {
		return "", errors.New("token not valid yet")
	}
	if a.Audience != "" && !claims.VerifyAudience(a.Audience, false) {
		return "", errors.New("invalid audience")
	}
	if a.Issuer != "" && !claims.VerifyIssuer(a.Issuer, false) {
		return "", errors.New("invalid issuer")
	}

	if org, ok := claims[orgClaim].(string); ok && org != "" {
		return org, nil
	}
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub, nil
	}
	return "", errors.New("missing org_id and sub")
}

func (a *Auth) key(t *jwt.Token) (any, error) {
	if a.testSecret != nil {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.testSecret, nil
	}
	if a.JWKS == nil {
		return nil, errors.New("jwks not configured")
	}

	kid, _ := t.Header["kid"].(string)
	if kid != "" && a.keyCacheTTL > 0 {
		if cached, ok := a.keyCache.Load(kid); ok {
			entry := cached.(cachedKey)
			if time.Now().Before(entry.expiresAt) {
				return entry.key, nil
			}
			a.keyCache.Delete(kid)
		}
	}
	key, err := a.JWKS.Keyfunc(t)
	if err != nil {
		return nil, err
	}
	if kid != "" && a.keyCacheTTL > 0 {
		a.keyCache.Store(kid, cachedKey{key: key, expiresAt: time.Now().Add(a.keyCacheTTL)})
	}
	return key, nil
}
