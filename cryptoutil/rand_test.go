package cryptoutil

import "testing"

func TestGenerateSecretUniqueAndSized(t *testing.T) {
	a, err := GenerateSecret(TokenEntropyBytes)
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	b, err := GenerateSecret(TokenEntropyBytes)
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	if a == b {
		t.Fatalf("GenerateSecret produced identical output on consecutive calls")
	}
	if len(a) == 0 {
		t.Fatalf("GenerateSecret returned empty string")
	}
}
