package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/CSCfi/metadata-submitter-go/idgen"
	"github.com/CSCfi/metadata-submitter-go/store"
)

// apiKeyEntropyBytes is the amount of randomness behind a minted API key
// (32 bytes = 256 bits), meeting spec.md §4.F's "32+ bytes of entropy".
const apiKeyEntropyBytes = 32

// NewAPIKey mints a plaintext API key: 32 random bytes, base64url-encoded
// with no padding. The caller must hash it with HashAPIKey before storing
// and must not persist the plaintext — it is only ever shown once.
func NewAPIKey() (string, error) {
	buf := make([]byte, apiKeyEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generate api key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashAPIKey derives the stored form of a plaintext key:
// HMAC-SHA256(pepper, key), hex-encoded. Deliberately not bcrypt — bcrypt's
// slowness is a defense against offline brute-forcing of user passwords,
// but an API key already carries 256 bits of entropy and is checked on
// every single request, so a slow KDF here would just be a self-inflicted
// throughput ceiling (spec.md §4.F supplement, see SPEC_FULL.md §4.F).
func HashAPIKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return fmt.Sprintf("%x", mac.Sum(nil))
}

// VerifyAPIKey constant-time compares a presented plaintext key's hash
// against a stored hash.
func VerifyAPIKey(pepper []byte, presented, storedHash string) bool {
	computed := HashAPIKey(pepper, presented)
	return hmac.Equal([]byte(computed), []byte(storedHash))
}

// IssueAPIKey mints a fresh key for userID, persists its hash via st, and
// returns both the new store.ApiKey row and the plaintext (shown once;
// POST /users/current/keys is the only response that ever carries it).
func IssueAPIKey(ctx context.Context, st *store.Store, pepper []byte, keyIDGen idgen.Generator, userID string) (*store.ApiKey, string, error) {
	plaintext, err := NewAPIKey()
	if err != nil {
		return nil, "", err
	}
	k := &store.ApiKey{
		KeyID:      keyIDGen(),
		UserID:     userID,
		SaltedHash: HashAPIKey(pepper, plaintext),
	}
	if err := st.ApiKeys.Create(ctx, k); err != nil {
		return nil, "", err
	}
	return k, plaintext, nil
}

// VerifyBearerAPIKey looks up a presented bearer API key by its hash and
// returns the owning user ID, or store.ErrNotFound if unknown, revoked, or
// expired.
func VerifyBearerAPIKey(ctx context.Context, st *store.Store, pepper []byte, presented string) (string, error) {
	hash := HashAPIKey(pepper, presented)
	k, err := st.ApiKeys.GetByHash(ctx, hash)
	if err != nil {
		return "", err
	}
	if k.Expires != nil && k.Expires.Before(time.Now()) {
		return "", store.ErrNotFound
	}
	return k.UserID, nil
}
