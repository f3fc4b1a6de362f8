package push

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dukerupert/pawkeep/internal/model"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// ErrExpired is returned when a push subscription is no longer valid (410 Gone).
var ErrExpired = errors.New("push subscription expired")

// Payload is the JSON sent to the push service.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// Service handles sending web push notifications.
type Service struct {
	publicKey  string
	privateKey string
	subscriber string
}

// NewService creates a push service with VAPID keys. The subscriber is the
// contact address push services may use to reach the operator (mailto: or
// https: URL).
func NewService(publicKey, privateKey, subscriber string) *Service {
	return &Service{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
	}
}

// VAPIDPublicKey returns the VAPID public key for client-side subscription.
func (s *Service) VAPIDPublicKey() string {
	return s.publicKey
}

// Send sends a push notification to a subscription.
func (s *Service) Send(sub *model.PushSubscription, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := webpush.SendNotification(data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		Subscriber:      s.subscriber,
		TTL:             86400,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		return ErrExpired
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}

	return nil
}

// GenerateVAPIDKeys generates a new ECDSA P-256 key pair for VAPID.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate ECDSA key: %w", err)
	}

	pubBytes := elliptic.Marshal(elliptic.P256(), key.PublicKey.X, key.PublicKey.Y)
	publicKey = base64.RawURLEncoding.EncodeToString(pubBytes)
	// Left-pad the scalar; D.Bytes() drops leading zero bytes.
	privateKey = base64.RawURLEncoding.EncodeToString(key.D.FillBytes(make([]byte, 32)))

	return publicKey, privateKey, nil
}

// KeyStore persists a generated VAPID key pair. store.SettingsStore
// satisfies it.
type KeyStore interface {
	Lookup(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

const (
	settingPublicKey  = "push_vapid_public_key"
	settingPrivateKey = "push_vapid_private_key"
)

// LoadOrCreateKeys returns the stored VAPID key pair, generating and saving a
// fresh pair on first use. Keeping the keys next to the subscriptions they
// sign means a database restore brings both back together; rotating to new
// keys would orphan every existing subscription.
func LoadOrCreateKeys(ks KeyStore) (publicKey, privateKey string, err error) {
	pub, okPub, err := ks.Lookup(settingPublicKey)
	if err != nil {
		return "", "", err
	}
	priv, okPriv, err := ks.Lookup(settingPrivateKey)
	if err != nil {
		return "", "", err
	}
	if okPub && okPriv {
		return pub, priv, nil
	}

	pub, priv, err = GenerateVAPIDKeys()
	if err != nil {
		return "", "", err
	}
	if err := ks.Set(settingPublicKey, pub); err != nil {
		return "", "", err
	}
	if err := ks.Set(settingPrivateKey, priv); err != nil {
		return "", "", err
	}
	return pub, priv, nil
}
