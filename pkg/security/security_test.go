package security

import (
	"context"
	"testing"
)

func TestGeneratePassword(t *testing.T) {
	first, err := GeneratePassword()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != PasswordLength {
		t.Fatalf("expected %d characters, got %d", PasswordLength, len(first))
	}

	second, err := GeneratePassword()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == second {
		t.Fatal("two generated passwords should not collide")
	}
}

func TestVerifyPassword(t *testing.T) {
	if !VerifyPassword("abc123", "abc123") {
		t.Fatal("matching passwords should verify")
	}
	if VerifyPassword("abc123", "abc124") {
		t.Fatal("mismatched passwords should not verify")
	}
	if VerifyPassword("", "") {
		t.Fatal("empty stored password should never verify")
	}
}

type memStore struct {
	values map[string]string
}

func (m *memStore) GetSetting(_ context.Context, key string) (string, error) {
	return m.values[key], nil
}

func (m *memStore) PutSetting(_ context.Context, key, value string) error {
	m.values[key] = value
	return nil
}

func TestSignerRoundTrip(t *testing.T) {
	store := &memStore{values: map[string]string{}}
	signer := NewSigner(store)
	ctx := context.Background()

	sig, err := signer.SignOrderID(ctx, 1234)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if store.values[KeypairSettingKey] == "" {
		t.Fatal("expected keypair to be persisted on first use")
	}

	ok, err := signer.VerifyOrderID(ctx, 1234, sig)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("signature should verify for the signed order id")
	}

	ok, err = signer.VerifyOrderID(ctx, 1235, sig)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatal("signature must not verify for a different order id")
	}

	if ok, _ := signer.VerifyOrderID(ctx, 1234, "%%%not-base64%%%"); ok {
		t.Fatal("malformed signature must not verify")
	}
}

func TestSignerReusesStoredKeypair(t *testing.T) {
	store := &memStore{values: map[string]string{}}
	ctx := context.Background()

	sig, err := NewSigner(store).SignOrderID(ctx, 77)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	// A fresh signer over the same store must verify signatures from the
	// first one.
	ok, err := NewSigner(store).VerifyOrderID(ctx, 77, sig)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("expected stored keypair to be reused")
	}
}
