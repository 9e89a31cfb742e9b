package security

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// KeypairStore persists the serialized signing keypair. Backed by the
// settings repository in production.
type KeypairStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
}

// KeypairSettingKey is where the base64 keypair lives in the settings store.
const KeypairSettingKey = "pagbank_stored_keypair"

// Signer signs order ids so charge metadata can prove which installation
// created a charge. The keypair is generated on first use and reused after.
type Signer struct {
	store KeypairStore
}

func NewSigner(store KeypairStore) *Signer {
	return &Signer{store: store}
}

// SignOrderID returns the base64 ed25519 signature of the decimal order id.
func (s *Signer) SignOrderID(ctx context.Context, orderID int64) (string, error) {
	priv, _, err := s.keypair(ctx)
	if err != nil {
		return "", err
	}
	sig := ed25519.Sign(priv, []byte(strconv.FormatInt(orderID, 10)))
	return base64.StdEncoding.EncodeToString(sig), nil
}

// VerifyOrderID checks a base64 signature against the order id.
func (s *Signer) VerifyOrderID(ctx context.Context, orderID int64, signature string) (bool, error) {
	_, pub, err := s.keypair(ctx)
	if err != nil {
		return false, err
	}
	raw, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false, nil
	}
	return ed25519.Verify(pub, []byte(strconv.FormatInt(orderID, 10)), raw), nil
}

func (s *Signer) keypair(ctx context.Context) (ed25519.PrivateKey, ed25519.PublicKey, error) {
	stored, err := s.store.GetSetting(ctx, KeypairSettingKey)
	if err != nil {
		return nil, nil, fmt.Errorf("loading keypair: %w", err)
	}
	if stored != "" {
		return decodeKeypair(stored)
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generating keypair: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(priv) + ":" + base64.StdEncoding.EncodeToString(pub)
	if err := s.store.PutSetting(ctx, KeypairSettingKey, encoded); err != nil {
		return nil, nil, fmt.Errorf("storing keypair: %w", err)
	}
	return priv, pub, nil
}

func decodeKeypair(stored string) (ed25519.PrivateKey, ed25519.PublicKey, error) {
	parts := strings.SplitN(stored, ":", 2)
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("stored keypair is malformed")
	}
	priv, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(priv) != ed25519.PrivateKeySize {
		return nil, nil, fmt.Errorf("stored private key is malformed")
	}
	pub, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return nil, nil, fmt.Errorf("stored public key is malformed")
	}
	return ed25519.PrivateKey(priv), ed25519.PublicKey(pub), nil
}
