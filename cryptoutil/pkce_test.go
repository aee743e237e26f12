package cryptoutil

import "testing"

func TestPKCES256RoundTrip(t *testing.T) {
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	challenge, err := DeriveChallenge(verifier, MethodS256)
	if err != nil {
		t.Fatalf("DeriveChallenge: %v", err)
	}

	ok, err := VerifyPKCE(verifier, MethodS256, challenge)
	if err != nil {
		t.Fatalf("VerifyPKCE: %v", err)
	}
	if !ok {
		t.Fatalf("expected matching verifier/challenge pair to verify")
	}
}

func TestPKCEPlainRoundTrip(t *testing.T) {
	verifier := "a-plain-verifier-that-is-long-enough-1234567"
	ok, err := VerifyPKCE(verifier, MethodPlain, verifier)
	if err != nil {
		t.Fatalf("VerifyPKCE: %v", err)
	}
	if !ok {
		t.Fatalf("expected plain method to verify verifier against itself")
	}
}

func TestPKCEMismatchFails(t *testing.T) {
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	ok, err := VerifyPKCE(verifier, MethodS256, "not-the-right-challenge")
	if err != nil {
		t.Fatalf("VerifyPKCE: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatched challenge to fail verification")
	}
}

func TestValidateVerifierRejectsBadLength(t *testing.T) {
	if err := ValidateVerifier("too-short"); err == nil {
		t.Fatalf("expected short verifier to be rejected")
	}
}

func TestValidateVerifierRejectsBadCharacters(t *testing.T) {
	verifier := "this-verifier-contains-an-illegal-character-!!!!!!!!!!!!!!!"
	if err := ValidateVerifier(verifier); err == nil {
		t.Fatalf("expected verifier with '!' to be rejected")
	}
}

func TestDeriveChallengeUnsupportedMethod(t *testing.T) {
	if _, err := DeriveChallenge("verifier", "S512"); err == nil {
		t.Fatalf("expected unsupported method to error")
	}
}
