// Package push delivers chat notifications to iOS devices through APNs.
package push

import (
	"context"
	"fmt"

	"connectiu-backend/internal/config"
	"connectiu-backend/internal/metrics"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

type apnsClient interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

// APNsNotifier sends alerts with a token-based APNs client
type APNsNotifier struct {
	client apnsClient
	topic  string
}

// NewAPNsNotifier loads the .p8 signing key and builds the client.
// Returns nil without error when APNs is not configured.
func NewAPNsNotifier(cfg config.APNsConfig) (*APNsNotifier, error) {
	if cfg.KeyPath == "" {
		return nil, nil
	}
	if cfg.KeyID == "" || cfg.TeamID == "" || cfg.Topic == "" {
		return nil, fmt.Errorf("apns key_id, team_id and topic are required")
	}

	authKey, err := token.AuthKeyFromFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load apns auth key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	log.Info().
		Str("topic", cfg.Topic).
		Bool("production", cfg.Production).
		Msg("APNs notifier configured")

	return &APNsNotifier{client: client, topic: cfg.Topic}, nil
}

// Notify sends an alert with title and body to one device
func (n *APNsNotifier) Notify(ctx context.Context, deviceToken, title, body string) error {
	notification := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       n.topic,
		Payload:     payload.NewPayload().AlertTitle(title).AlertBody(body).Sound("default"),
	}

	res, err := n.client.PushWithContext(ctx, notification)
	if err != nil {
		metrics.PushNotifications.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to push notification: %w", err)
	}
	if !res.Sent() {
		metrics.PushNotifications.WithLabelValues("rejected").Inc()
		return fmt.Errorf("apns rejected notification: %d %s", res.StatusCode, res.Reason)
	}

	metrics.PushNotifications.WithLabelValues("sent").Inc()
	log.Debug().Str("apns_id", res.ApnsID).Msg("Push notification sent")
	return nil
}
