// Package push delivers notifications to fans: web push for devices, the
// notifier that fans committed awards out to push and websocket clients, and
// the streak reminder scheduler.
package push

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dstclair/fanpulse/internal/model"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// ErrExpired means the push service no longer knows the subscription; the
// caller should delete it.
var ErrExpired = errors.New("push subscription expired")

const (
	subscriber = "mailto:noreply@fanpulse.app"
	payloadTTL = 86400 // seconds the push service may hold an undelivered message
)

// Payload is the JSON sent to the push service. Type is one of the
// model.NotifType constants; Data carries the type-specific fields.
type Payload struct {
	Type  string         `json:"type"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Tag   string         `json:"tag,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// Config holds VAPID configuration.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
}

// Service sends web push notifications signed with the server's VAPID keys.
type Service struct {
	options webpush.Options
}

func NewService(publicKey, privateKey string) *Service {
	return &Service{
		options: webpush.Options{
			VAPIDPublicKey:  publicKey,
			VAPIDPrivateKey: privateKey,
			Subscriber:      subscriber,
			TTL:             payloadTTL,
		},
	}
}

// VAPIDPublicKey returns the public key clients use when subscribing.
func (s *Service) VAPIDPublicKey() string {
	return s.options.VAPIDPublicKey
}

// Send pushes one payload to one subscription. A 404 or 410 from the push
// service means the browser dropped the subscription and maps to ErrExpired.
func (s *Service) Send(sub *model.PushSubscription, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	opts := s.options
	resp, err := webpush.SendNotification(data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &opts)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		return ErrExpired
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}

// GenerateVAPIDKeys creates a fresh P-256 VAPID key pair, base64url-encoded
// the way browsers expect.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
	if err != nil {
		return "", "", fmt.Errorf("generate VAPID keys: %w", err)
	}
	return publicKey, privateKey, nil
}
