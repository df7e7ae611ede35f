package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/snptkdn/library-reminder/internal/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// SubscriptionStore holds at most one push subscription per user; the
// user ID is the document ID, so Put is a full overwrite.
type SubscriptionStore struct {
	client     *firestore.Client
	collection string
}

// NewSubscriptionStore returns a store over the given Firestore collection.
func NewSubscriptionStore(client *firestore.Client, collection string) *SubscriptionStore {
	return &SubscriptionStore{client: client, collection: collection}
}

// Put creates or replaces the user's subscription.
func (s *SubscriptionStore) Put(ctx context.Context, userID, subscription string) error {
	record := models.PushSubscriptionRecord{
		UserID:       userID,
		Subscription: subscription,
		UpdatedAt:    time.Now(),
	}
	if _, err := s.client.Collection(s.collection).Doc(userID).Set(ctx, record); err != nil {
		return fmt.Errorf("failed to put subscription for user %s: %w", userID, err)
	}
	return nil
}

// Get returns the user's subscription, or nil when the user has never
// subscribed. Absence is not an error.
func (s *SubscriptionStore) Get(ctx context.Context, userID string) (*models.PushSubscriptionRecord, error) {
	doc, err := s.client.Collection(s.collection).Doc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription for user %s: %w", userID, err)
	}

	var record models.PushSubscriptionRecord
	if err := doc.DataTo(&record); err != nil {
		return nil, fmt.Errorf("failed to decode subscription for user %s: %w", userID, err)
	}
	return &record, nil
}
