package security

import (
	"testing"
	"time"
)

func TestTokenProvider_IssueAndValidateAccess(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	access, jti, exp, err := p.IssueAccess("emp-1", "co-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if access == "" || jti == "" {
		t.Fatal("access token or jti empty")
	}
	if exp.Before(time.Now()) {
		t.Fatal("expires at in the past")
	}

	got, err := p.ValidateAccess(access)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	want := Principal{EmployeeID: "emp-1", CompanyID: "co-1", TokenID: jti}
	if got != want {
		t.Errorf("ValidateAccess = %+v, want %+v", got, want)
	}
}

func TestTokenProvider_ValidateAccessInvalid(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	if _, err := p.ValidateAccess("invalid-token"); err != ErrInvalidToken {
		t.Errorf("ValidateAccess invalid token: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_RejectsOtherIssuerAndAudience(t *testing.T) {
	signer, err := ParsePrivateKey(testPrivateKeyPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	p, _ := NewTestTokenProvider()

	testCases := []struct {
		name     string
		issuer   string
		audience string
	}{
		{"issuer", "someone-else", "test-audience"},
		{"audience", "test-issuer", "another-service"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			other := NewTokenProvider(signer, signer.Public(), tc.issuer, tc.audience, time.Minute)
			token, _, _, err := other.IssueAccess("emp-1", "co-1")
			if err != nil {
				t.Fatalf("IssueAccess: %v", err)
			}
			if _, err := p.ValidateAccess(token); err != ErrInvalidToken {
				t.Errorf("ValidateAccess: want ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestTokenProvider_RejectsExpired(t *testing.T) {
	signer, err := ParsePrivateKey(testPrivateKeyPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	p := NewTokenProvider(signer, signer.Public(), "test-issuer", "test-audience", -time.Minute)
	token, _, _, err := p.IssueAccess("emp-1", "co-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := p.ValidateAccess(token); err != ErrInvalidToken {
		t.Errorf("ValidateAccess expired: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_VerifyOnly(t *testing.T) {
	pub, err := ParsePublicKey(testPublicKeyPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	verifier := NewTokenProvider(nil, pub, "test-issuer", "test-audience", time.Minute)
	if _, _, _, err := verifier.IssueAccess("emp-1", "co-1"); err != ErrNoSigningKey {
		t.Errorf("IssueAccess without key: want ErrNoSigningKey, got %v", err)
	}

	issuer, _ := NewTestTokenProvider()
	token, _, _, err := issuer.IssueAccess("emp-1", "co-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	got, err := verifier.ValidateAccess(token)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if got.EmployeeID != "emp-1" {
		t.Errorf("EmployeeID = %q, want emp-1", got.EmployeeID)
	}
}
