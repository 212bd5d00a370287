package security

import (
	"testing"
	"time"
)

func TestJWTVerifierRoundTrip(t *testing.T) {
	t.Parallel()

	verifier, signer, err := NewEphemeralVerifierAndSigner()
	if err != nil {
		t.Fatalf("ephemeral keys: %v", err)
	}

	token, err := signer.Sign("tpp-user-1", "TPP-1", 5*time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.ParticipantID != "TPP-1" || claims.Subject != "tpp-user-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := verifier.Verify("not-a-jwt"); err == nil {
		t.Fatalf("expected error for malformed token")
	}

	otherVerifier, _, err := NewEphemeralVerifierAndSigner()
	if err != nil {
		t.Fatalf("ephemeral keys: %v", err)
	}
	if _, err := otherVerifier.Verify(token); err == nil {
		t.Fatalf("expected error for token signed by a different key")
	}
}

func TestJWTVerifierRequiresParticipantClaim(t *testing.T) {
	t.Parallel()

	verifier, signer, err := NewEphemeralVerifierAndSigner()
	if err != nil {
		t.Fatalf("ephemeral keys: %v", err)
	}
	token, err := signer.Sign("subject-only", "", 5*time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := verifier.Verify(token); err == nil {
		t.Fatalf("expected error for missing participant_id claim")
	}
}

func TestJWTVerifierRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	verifier, signer, err := NewEphemeralVerifierAndSigner()
	if err != nil {
		t.Fatalf("ephemeral keys: %v", err)
	}
	token, err := signer.Sign("tpp-user-1", "TPP-1", -2*time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := verifier.Verify(token); err == nil {
		t.Fatalf("expected error for expired token")
	}
}
