package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func testCodec() codec {
	return codec{secret: testSecret, issuer: defaultIssuer}
}

func validClaims(now time.Time) *Claims {
	return &Claims{
		Scope: "ROLE_FARMER",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			Issuer:    defaultIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			ID:        "token-1",
		},
	}
}

func TestCodecRoundTrip(t *testing.T) {
	c := testCodec()
	now := time.Now().UTC().Truncate(time.Second)

	signed, err := c.encode(validClaims(now))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if parts := strings.Split(signed, "."); len(parts) != 3 {
		t.Fatalf("expected compact JWS with 3 segments, got %d", len(parts))
	}

	claims, err := c.decodeAndVerify(signed)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if claims.Subject != "alice" {
		t.Fatalf("subject = %q", claims.Subject)
	}
	if claims.ID != "token-1" {
		t.Fatalf("jti = %q", claims.ID)
	}
	if got := claims.Roles(); len(got) != 1 || got[0] != RoleFarmer {
		t.Fatalf("roles = %v", got)
	}
}

func TestCodecRejectsTamperedToken(t *testing.T) {
	c := testCodec()
	signed, err := c.encode(validClaims(time.Now().UTC()))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	// flip a character in the payload segment
	parts := strings.Split(signed, ".")
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	parts[1] = string(payload)
	tampered := strings.Join(parts, ".")

	if _, err := c.decodeAndVerify(tampered); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}
}

func TestCodecRejectsWrongKey(t *testing.T) {
	other := codec{secret: []byte("ffffffffffffffffffffffffffffffff"), issuer: defaultIssuer}
	signed, err := other.encode(validClaims(time.Now().UTC()))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := testCodec().decodeAndVerify(signed); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestCodecRejectsWrongAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims(time.Now().UTC()))
	signed, err := token.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := testCodec().decodeAndVerify(signed); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestCodecRejectsMalformedInput(t *testing.T) {
	for _, raw := range []string{"", "   ", "not-a-token", "a.b", "a.b.c.d"} {
		if _, err := testCodec().decodeAndVerify(raw); !errors.Is(err, ErrMalformedToken) {
			t.Fatalf("input %q: expected ErrMalformedToken, got %v", raw, err)
		}
	}
}

func TestCodecStructureChecks(t *testing.T) {
	now := time.Now().UTC()
	cases := []struct {
		name   string
		mutate func(*Claims)
	}{
		{"missing subject", func(c *Claims) { c.Subject = "" }},
		{"wrong issuer", func(c *Claims) { c.Issuer = "someone-else" }},
		{"missing jti", func(c *Claims) { c.ID = "" }},
		{"exp before iat", func(c *Claims) {
			c.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Hour))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			claims := validClaims(now)
			tc.mutate(claims)
			signed, err := testCodec().encode(claims)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if _, err := testCodec().decodeAndVerify(signed); !errors.Is(err, ErrMalformedToken) {
				t.Fatalf("expected ErrMalformedToken, got %v", err)
			}
		})
	}
}

func TestScopeRoundTrip(t *testing.T) {
	scope := ScopeFromRoles([]Role{RoleAdmin, RoleFarmer})
	if scope != "ROLE_ADMIN ROLE_FARMER" {
		t.Fatalf("scope = %q", scope)
	}
	roles := RolesFromScope("ROLE_ADMIN bogus ROLE_UNKNOWN ROLE_FARMER ROLE_ADMIN")
	if len(roles) != 2 || roles[0] != RoleAdmin || roles[1] != RoleFarmer {
		t.Fatalf("roles = %v", roles)
	}
}
