package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/snptkdn/library-reminder/internal/gcp"
	"github.com/snptkdn/library-reminder/internal/models"
	"github.com/snptkdn/library-reminder/internal/push"
	"github.com/snptkdn/library-reminder/internal/store"
	"golang.org/x/sync/errgroup"
)

// deliveryConcurrency bounds in-flight push sends per user.
const deliveryConcurrency = 4

// dueScanner is the scan surface of the loan store.
type dueScanner interface {
	FindDueSoon(ctx context.Context, ref time.Time) ([]models.LoanRecord, error)
}

// subscriptionReader resolves a user to their push subscription, nil
// when they never subscribed.
type subscriptionReader interface {
	Get(ctx context.Context, userID string) (*models.PushSubscriptionRecord, error)
}

// NotifierConfig holds all configuration for the scheduled scan.
type NotifierConfig struct {
	ProjectID              string
	LoanCollection         string
	SubscriptionCollection string
	VAPID                  push.VAPIDConfig
}

// NotifierFunction runs the due-date scan: find loans due today or
// tomorrow, match each owner to their subscription, deliver one
// reminder per loan.
type NotifierFunction struct {
	loans    dueScanner
	subs     subscriptionReader
	notifier push.Notifier
}

// notificationPayload is the JSON the service worker displays.
type notificationPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func loadNotifierConfig() (*NotifierConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	vapid := push.VAPIDConfig{
		Subscriber: gcp.GetEnv("VAPID_SUBSCRIBER", ""),
		PublicKey:  gcp.GetEnv("VAPID_PUBLIC_KEY", ""),
		PrivateKey: gcp.GetEnv("VAPID_PRIVATE_KEY", ""),
	}
	if vapid.PublicKey == "" || vapid.PrivateKey == "" {
		return nil, fmt.Errorf("VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY must be set")
	}

	return &NotifierConfig{
		ProjectID:              projectID,
		LoanCollection:         gcp.GetEnv("LOAN_COLLECTION", "loans"),
		SubscriptionCollection: gcp.GetEnv("SUBSCRIPTION_COLLECTION", "pushSubscriptions"),
		VAPID:                  vapid,
	}, nil
}

// NewNotifier creates a new NotifierFunction instance with real
// collaborators, configured from the environment.
func NewNotifier(ctx context.Context) (*NotifierFunction, error) {
	config, err := loadNotifierConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	notifier, err := push.NewWebPushNotifier(config.VAPID)
	if err != nil {
		return nil, fmt.Errorf("failed to create web push notifier: %w", err)
	}

	return &NotifierFunction{
		loans:    store.NewLoanStore(firestoreClient, config.LoanCollection),
		subs:     store.NewSubscriptionStore(firestoreClient, config.SubscriptionCollection),
		notifier: notifier,
	}, nil
}

// RunScheduledScan delivers a reminder for every loan due on the
// reference date or the day after.
//
// Delivery is at-least-once: the scan is purely date-driven with no
// delivered-marker, so a loan still inside the due window on the next
// scheduled run is reminded again, and overlapping runs may each
// deliver. A failed delivery is logged and swallowed; one stale
// endpoint must not cost the remaining loans their reminders.
func (f *NotifierFunction) RunScheduledScan(ctx context.Context, ref time.Time) error {
	refDate := ref.Format(models.DateLayout)
	logCtx := slog.With("referenceDate", refDate)

	dueLoans, err := f.loans.FindDueSoon(ctx, ref)
	if err != nil {
		logCtx.Error("Due-date scan failed", "error", err)
		return fmt.Errorf("failed to scan for due loans: %w", err)
	}
	if len(dueLoans) == 0 {
		logCtx.Info("No loans due soon; nothing to notify.")
		return nil
	}

	byUser := make(map[string][]models.LoanRecord)
	for _, loan := range dueLoans {
		byUser[loan.UserID] = append(byUser[loan.UserID], loan)
	}
	logCtx.Info("Found loans due soon.", "loanCount", len(dueLoans), "userCount", len(byUser))

	var delivered, failed atomic.Int64
	for userID, userLoans := range byUser {
		userLog := logCtx.With("userId", userID)

		sub, err := f.subs.Get(ctx, userID)
		if err != nil {
			userLog.Error("Failed to fetch subscription; skipping user.", "error", err)
			continue
		}
		if sub == nil {
			userLog.Info("User has no push subscription; skipping.")
			continue
		}

		eg, gctx := errgroup.WithContext(ctx)
		eg.SetLimit(deliveryConcurrency)
		for _, loan := range userLoans {
			eg.Go(func() error {
				payload, err := json.Marshal(notificationPayload{
					Title: "Book Return Reminder",
					Body:  fmt.Sprintf("Your book %q is due on %s.", loan.Title, loan.DueDate),
				})
				if err != nil {
					failed.Add(1)
					userLog.Error("Failed to render notification payload", "error", err, "bookId", loan.BookID)
					return nil
				}
				if err := f.notifier.Send(gctx, sub.Subscription, payload); err != nil {
					failed.Add(1)
					userLog.Error("Failed to deliver reminder; continuing with remaining loans.",
						"error", err, "bookId", loan.BookID, "dueDate", loan.DueDate)
					return nil
				}
				delivered.Add(1)
				return nil
			})
		}
		_ = eg.Wait() // per-item errors are swallowed above
	}

	logCtx.Info("Scheduled scan complete.", "delivered", delivered.Load(), "failed", failed.Load())
	return nil
}
