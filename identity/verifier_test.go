package identity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/PaulFidika/auditstore/identity"
	authtest "github.com/PaulFidika/auditstore/testing"
)

func TestTokenVerifier_RegularUser(t *testing.T) {
	iss := authtest.NewTestIssuer()
	defer iss.Close()

	v := identity.NewTokenVerifier(iss.AcceptConfig())
	id, err := v.Verify(context.Background(), iss.CreateToken("u_1", "user@example.com"))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.UserID != "u_1" || id.Email != "user@example.com" || id.IsAdmin {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestTokenVerifier_AdminRole(t *testing.T) {
	iss := authtest.NewTestIssuer()
	defer iss.Close()

	v := identity.NewTokenVerifier(iss.AcceptConfig())
	id, err := v.Verify(context.Background(), iss.CreateAdminToken("u_admin", "ops@example.com"))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !id.IsAdmin {
		t.Fatal("expected admin role to be recognised")
	}
}

func TestTokenVerifier_Rejects(t *testing.T) {
	iss := authtest.NewTestIssuer()
	defer iss.Close()
	other := authtest.NewTestIssuerWithAudience("someone-else")
	defer other.Close()

	v := identity.NewTokenVerifier(iss.AcceptConfig())
	cases := map[string]string{
		"empty":        "",
		"garbage":      "not-a-jwt",
		"expired":      iss.CreateExpiredToken("u_1", "user@example.com"),
		"wrong issuer": other.CreateToken("u_1", "user@example.com"),
		"no subject":   iss.CreateToken("", "user@example.com"),
	}
	for name, tok := range cases {
		if _, err := v.Verify(context.Background(), tok); !errors.Is(err, identity.ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}
