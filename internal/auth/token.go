package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the signed payload of an access token. The scope claim carries
// the wire-format role list ("ROLE_ADMIN ROLE_FARMER"); everything else is a
// registered JWT claim. Serialized form is a standard JWS compact token
// signed with HS512.
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Roles returns the closed-enum view of the scope claim.
func (c *Claims) Roles() []Role { return RolesFromScope(c.Scope) }

// codec encodes and verifies the signed token structure. It owns signature
// checks only; expiry and revocation belong to the Manager.
type codec struct {
	secret []byte
	issuer string
}

func (c codec) encode(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// decodeAndVerify parses the compact token and recomputes the MAC (the jwt
// library compares in constant time). Temporal claims are deliberately not
// validated here.
func (c codec) decodeAndVerify(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMalformedToken
	}

	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	parsed, err := parser.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS512 {
			return nil, ErrSignatureInvalid
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, ErrMalformedToken
		}
		return nil, ErrSignatureInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrSignatureInvalid
	}
	if err := c.checkStructure(claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (c codec) checkStructure(claims *Claims) error {
	if strings.TrimSpace(claims.Subject) == "" {
		return ErrMalformedToken
	}
	if claims.Issuer != c.issuer {
		return ErrMalformedToken
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return ErrMalformedToken
	}
	if !claims.ExpiresAt.Time.After(claims.IssuedAt.Time) {
		return ErrMalformedToken
	}
	if strings.TrimSpace(claims.ID) == "" {
		return ErrMalformedToken
	}
	return nil
}
