package auth

import "testing"

func TestNewAPIKey_ProducesDistinctValues(t *testing.T) {
	a, err := NewAPIKey()
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewAPIKey()
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("expected two independently generated keys to differ")
	}
	if len(a) == 0 {
		t.Fatal("expected a non-empty key")
	}
}

func TestHashAPIKey_DeterministicForSamePepperAndKey(t *testing.T) {
	pepper := []byte("a-fixed-test-pepper-value")
	h1 := HashAPIKey(pepper, "some-key")
	h2 := HashAPIKey(pepper, "some-key")
	if h1 != h2 {
		t.Fatal("expected the same (pepper, key) pair to hash identically")
	}
}

func TestHashAPIKey_DifferentPepperDifferentHash(t *testing.T) {
	h1 := HashAPIKey([]byte("pepper-one-pepper-one-pepper-one"), "some-key")
	h2 := HashAPIKey([]byte("pepper-two-pepper-two-pepper-two"), "some-key")
	if h1 == h2 {
		t.Fatal("expected different peppers to produce different hashes")
	}
}

func TestVerifyAPIKey(t *testing.T) {
	pepper := []byte("a-fixed-test-pepper-value")
	key, err := NewAPIKey()
	if err != nil {
		t.Fatal(err)
	}
	hash := HashAPIKey(pepper, key)

	if !VerifyAPIKey(pepper, key, hash) {
		t.Error("expected the correct key to verify")
	}
	if VerifyAPIKey(pepper, "wrong-key", hash) {
		t.Error("expected an incorrect key to fail verification")
	}
}
