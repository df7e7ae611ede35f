package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/snptkdn/library-reminder/internal/gcp"
	"github.com/snptkdn/library-reminder/internal/models"
	"github.com/snptkdn/library-reminder/internal/store"
)

// subscriptionWriter is the write surface of the subscription store.
type subscriptionWriter interface {
	Put(ctx context.Context, userID, subscription string) error
}

// SubscriberFunction stores browser push subscriptions, one per user.
type SubscriberFunction struct {
	subs subscriptionWriter
}

// NewSubscriber creates a new SubscriberFunction instance configured
// from the environment.
func NewSubscriber(ctx context.Context) (*SubscriberFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return &SubscriberFunction{
		subs: store.NewSubscriptionStore(firestoreClient, gcp.GetEnv("SUBSCRIPTION_COLLECTION", "pushSubscriptions")),
	}, nil
}

// Put replaces the user's subscription with the supplied one. The blob
// stays opaque beyond a presence check on the endpoint; its keys belong
// to the browser's push service, not to us.
func (f *SubscriberFunction) Put(ctx context.Context, req *models.SubscribeRequest) error {
	if req.UserID == "" {
		return fmt.Errorf("userId must be provided")
	}

	var probe struct {
		Endpoint string `json:"endpoint"`
	}
	if err := json.Unmarshal([]byte(req.Subscription), &probe); err != nil {
		return fmt.Errorf("subscription is not valid JSON: %w", err)
	}
	if probe.Endpoint == "" {
		return fmt.Errorf("subscription has no endpoint")
	}

	if err := f.subs.Put(ctx, req.UserID, req.Subscription); err != nil {
		slog.Error("Failed to store subscription", "error", err, "userId", req.UserID)
		return err
	}
	slog.Info("Subscription stored.", "userId", req.UserID)
	return nil
}
