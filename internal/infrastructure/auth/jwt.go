package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-commerce/internal/application"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("auth: missing bearer token")
	ErrInvalidToken = errors.New("auth: invalid token")
)

type Claims struct {
	UserID string `json:"user_id,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWT verifies and issues HS256 tokens carrying the caller identity.
type JWT struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewJWT(secret, issuer string) (*JWT, error) {
	if secret == "" {
		return nil, errors.New("auth: jwt secret is required")
	}
	return &JWT{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// Verify parses a raw token into a Caller. The subject wins over the legacy
// user_id claim; an absent role means customer.
func (j *JWT) Verify(raw string) (application.Caller, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return application.Caller{}, ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return j.secret, nil
	}, opts...)
	if err != nil {
		return application.Caller{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	userID := claims.Subject
	if userID == "" {
		userID = claims.UserID
	}
	if userID == "" {
		return application.Caller{}, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}

	role := application.Role(strings.ToLower(claims.Role))
	switch role {
	case "":
		role = application.RoleCustomer
	case application.RoleCustomer, application.RoleAdmin:
	default:
		return application.Caller{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	return application.Caller{UserID: userID, Role: role}, nil
}

// Issue signs a token for c valid for ttl.
func (j *JWT) Issue(c application.Caller, ttl time.Duration) (string, error) {
	now := j.now()
	claims := Claims{
		Role: string(c.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.UserID,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}
