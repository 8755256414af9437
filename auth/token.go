package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenInvalid      = errors.New("token invalid")
	ErrUnrecognizedToken = errors.New("unrecognized token")
)

type TokenOptions struct {
	Exp    time.Duration
	Secret []byte
}

// Identity is a verified user identity supplied by the identity collaborator.
// The relay trusts these fields when stamping messages and presence records.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type IdentityClaims struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	jwt.RegisteredClaims
}

func NewIdentityClaims(identity Identity, exp time.Time) *IdentityClaims {
	return &IdentityClaims{
		identity.Username,
		identity.Avatar,
		jwt.RegisteredClaims{
			Subject:   identity.UserID,
			ExpiresAt: jwt.NewNumericDate(exp),
			Issuer:    "chatwire",
		},
	}
}

func (c *IdentityClaims) Identity() Identity {
	return Identity{
		UserID:   c.Subject,
		Username: c.Username,
		Avatar:   c.Avatar,
	}
}

// CreateToken signs a token carrying the given identity.
func CreateToken(identity Identity, options TokenOptions) (signed string, exp time.Time, err error) {
	exp = time.Now().Add(options.Exp)
	claims := NewIdentityClaims(identity, exp)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err = token.SignedString(options.Secret)
	if err != nil {
		return signed, exp, err
	}

	_, err = VerifyToken(signed, options)

	return signed, exp, err
}

// VerifyToken parses and verifies a signed token and returns its claims.
func VerifyToken(token string, options TokenOptions) (*IdentityClaims, error) {
	claims := &IdentityClaims{}

	_token, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return options.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))

	switch {
	case _token != nil && _token.Valid:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, ErrTokenInvalid
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrTokenInvalid
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	default:
		return nil, ErrUnrecognizedToken
	}
}
