package services

import (
	"context"
	"fmt"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// APNsPusher sends alerts through Apple Push Notification service
type APNsPusher struct {
	client *apns2.Client
	topic  string
}

// NewAPNsPusher creates a token-based APNs client from a .p8 signing key
func NewAPNsPusher(keyPath, keyID, teamID, topic string, production bool) (*APNsPusher, error) {
	authKey, err := token.AuthKeyFromFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   keyID,
		TeamID:  teamID,
	})
	if production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNsPusher{client: client, topic: topic}, nil
}

// Push sends one alert to a device
func (p *APNsPusher) Push(ctx context.Context, deviceToken, alert string, data map[string]any) error {
	pl := payload.NewPayload().Alert(alert).Sound("default")
	for k, v := range data {
		pl.Custom(k, v)
	}

	res, err := p.client.PushWithContext(ctx, &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       p.topic,
		Payload:     pl,
	})
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	if !res.Sent() {
		return fmt.Errorf("apns rejected notification: %d %s", res.StatusCode, res.Reason)
	}
	return nil
}
