package models

import "time"

// PushSubscriptionRecord holds the one push subscription a user may have.
// Subscription is the browser-issued descriptor (endpoint URL plus
// cryptographic keys) kept as an opaque JSON blob; it is only parsed at
// delivery time by the push layer, never by the stores.
type PushSubscriptionRecord struct {
	UserID       string    `firestore:"userId" json:"userId"`
	Subscription string    `firestore:"subscription" json:"subscription"`
	UpdatedAt    time.Time `firestore:"updatedAt" json:"updatedAt"`
}
