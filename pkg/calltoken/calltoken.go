package calltoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenVersion = 2

var (
	ErrNotConfigured = errors.New("call provider credentials are not configured")
	ErrInvalidToken  = errors.New("invalid call token")
)

var DefaultPermissions = []string{"allow_join", "allow_mod"}

// Issuer signs access tokens for the external video-call provider.
type Issuer struct {
	apiKey string
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func New(apiKey, secret string, ttl time.Duration) *Issuer {
	return &Issuer{
		apiKey: apiKey,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (i *Issuer) Configured() bool {
	return i.apiKey != "" && len(i.secret) > 0
}

func (i *Issuer) Issue(permissions ...string) (string, error) {
	if !i.Configured() {
		return "", ErrNotConfigured
	}

	if len(permissions) == 0 {
		permissions = DefaultPermissions
	}

	now := i.now()
	claims := jwt.MapClaims{
		"apikey":      i.apiKey,
		"permissions": permissions,
		"version":     tokenVersion,
		"iat":         now.Unix(),
		"exp":         now.Add(i.ttl).Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign call token: %w", err)
	}

	return token, nil
}

// parse verifies a token issued by this Issuer and returns its permissions.
func (i *Issuer) parse(token string) ([]string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims["apikey"] != i.apiKey {
		return nil, ErrInvalidToken
	}

	raw, _ := claims["permissions"].([]any)
	permissions := make([]string, 0, len(raw))
	for _, p := range raw {
		if s, ok := p.(string); ok {
			permissions = append(permissions, s)
		}
	}

	return permissions, nil
}
