// Package push delivers Web Push notifications to browser subscriptions.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// Notifier is the delivery surface the notification scan depends on. A
// send failure is terminal for that delivery attempt; retries are not
// this layer's concern.
type Notifier interface {
	Send(ctx context.Context, subscription string, payload []byte) error
}

// VAPIDConfig holds the server identification keys for Web Push.
type VAPIDConfig struct {
	Subscriber string // mailto: contact address
	PublicKey  string
	PrivateKey string
}

// NewWebPushNotifier returns a Notifier backed by the Web Push protocol.
func NewWebPushNotifier(cfg VAPIDConfig) (Notifier, error) {
	if cfg.PublicKey == "" || cfg.PrivateKey == "" {
		return nil, fmt.Errorf("VAPID public and private keys must be provided")
	}
	return &webPushNotifier{cfg: cfg}, nil
}

type webPushNotifier struct {
	cfg VAPIDConfig
}

// Send parses the stored opaque subscription blob and delivers the
// payload. The blob is only ever interpreted here, at the delivery
// boundary.
func (n *webPushNotifier) Send(ctx context.Context, subscription string, payload []byte) error {
	var sub webpush.Subscription
	if err := json.Unmarshal([]byte(subscription), &sub); err != nil {
		return fmt.Errorf("stored subscription is not valid JSON: %w", err)
	}
	if sub.Endpoint == "" {
		return fmt.Errorf("stored subscription has no endpoint")
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &sub, &webpush.Options{
		Subscriber:      n.cfg.Subscriber,
		VAPIDPublicKey:  n.cfg.PublicKey,
		VAPIDPrivateKey: n.cfg.PrivateKey,
		TTL:             3600,
	})
	if err != nil {
		return fmt.Errorf("web push delivery failed: %w", err)
	}
	defer resp.Body.Close()

	// Push services report expired/unsubscribed endpoints via the
	// status code, not a transport error.
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push service returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
