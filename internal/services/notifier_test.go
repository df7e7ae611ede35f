package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/snptkdn/library-reminder/internal/models"
)

type fakeScanner struct {
	loans []models.LoanRecord
	err   error
}

func (f *fakeScanner) FindDueSoon(ctx context.Context, ref time.Time) ([]models.LoanRecord, error) {
	return f.loans, f.err
}

type fakeSubs struct {
	records map[string]*models.PushSubscriptionRecord
	calls   int
}

func (f *fakeSubs) Get(ctx context.Context, userID string) (*models.PushSubscriptionRecord, error) {
	f.calls++
	return f.records[userID], nil
}

type fakePush struct {
	mu       sync.Mutex
	payloads [][]byte
	failOn   string // fail any payload containing this substring
}

func (f *fakePush) Send(ctx context.Context, subscription string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	if f.failOn != "" && strings.Contains(string(payload), f.failOn) {
		return errors.New("push endpoint gone")
	}
	return nil
}

func (f *fakePush) sent() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.payloads...)
}

func dueLoan(userID, title, dueDate string) models.LoanRecord {
	return models.LoanRecord{
		UserID:      userID,
		BookID:      "book-" + title,
		Title:       title,
		LendingDate: "2025-06-01",
		DueDate:     dueDate,
	}
}

var refDate = time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

func subscribed(userIDs ...string) *fakeSubs {
	records := map[string]*models.PushSubscriptionRecord{}
	for _, id := range userIDs {
		records[id] = &models.PushSubscriptionRecord{
			UserID:       id,
			Subscription: `{"endpoint":"https://push.example/` + id + `"}`,
		}
	}
	return &fakeSubs{records: records}
}

func TestRunScheduledScanDeliversEveryDueLoan(t *testing.T) {
	scanner := &fakeScanner{loans: []models.LoanRecord{
		dueLoan("user-1", "Foo", "2025-06-10"),
		dueLoan("user-1", "Bar", "2025-06-11"),
		dueLoan("user-1", "Baz", "2025-06-10"),
	}}
	notifier := &fakePush{}
	fn := &NotifierFunction{loans: scanner, subs: subscribed("user-1"), notifier: notifier}

	if err := fn.RunScheduledScan(context.Background(), refDate); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if got := len(notifier.sent()); got != 3 {
		t.Fatalf("want 3 deliveries, got %d", got)
	}
}

func TestRunScheduledScanContinuesPastFailedDelivery(t *testing.T) {
	scanner := &fakeScanner{loans: []models.LoanRecord{
		dueLoan("user-1", "Foo", "2025-06-10"),
		dueLoan("user-1", "Bar", "2025-06-10"),
		dueLoan("user-1", "Baz", "2025-06-11"),
	}}
	notifier := &fakePush{failOn: "Bar"}
	fn := &NotifierFunction{loans: scanner, subs: subscribed("user-1"), notifier: notifier}

	if err := fn.RunScheduledScan(context.Background(), refDate); err != nil {
		t.Fatalf("a per-item failure must not fail the scan: %v", err)
	}
	// All three deliveries are still attempted.
	if got := len(notifier.sent()); got != 3 {
		t.Fatalf("want 3 delivery attempts, got %d", got)
	}
}

func TestRunScheduledScanRendersPayload(t *testing.T) {
	scanner := &fakeScanner{loans: []models.LoanRecord{dueLoan("user-1", "Foo", "2025-06-10")}}
	notifier := &fakePush{}
	fn := &NotifierFunction{loans: scanner, subs: subscribed("user-1"), notifier: notifier}

	if err := fn.RunScheduledScan(context.Background(), refDate); err != nil {
		t.Fatalf("scan: %v", err)
	}
	sent := notifier.sent()
	if len(sent) != 1 {
		t.Fatalf("want 1 delivery, got %d", len(sent))
	}
	var payload struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := json.Unmarshal(sent[0], &payload); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if payload.Title != "Book Return Reminder" {
		t.Fatalf("unexpected title: %q", payload.Title)
	}
	if payload.Body != `Your book "Foo" is due on 2025-06-10.` {
		t.Fatalf("unexpected body: %q", payload.Body)
	}
}

func TestRunScheduledScanEmptyIsNoop(t *testing.T) {
	subs := subscribed("user-1")
	notifier := &fakePush{}
	fn := &NotifierFunction{loans: &fakeScanner{}, subs: subs, notifier: notifier}

	if err := fn.RunScheduledScan(context.Background(), refDate); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if subs.calls != 0 {
		t.Fatal("empty scan must not fetch subscriptions")
	}
	if len(notifier.sent()) != 0 {
		t.Fatal("empty scan must not deliver")
	}
}

func TestRunScheduledScanSkipsUnsubscribedUser(t *testing.T) {
	scanner := &fakeScanner{loans: []models.LoanRecord{
		dueLoan("user-1", "Foo", "2025-06-10"),
		dueLoan("user-2", "Bar", "2025-06-10"),
	}}
	notifier := &fakePush{}
	fn := &NotifierFunction{loans: scanner, subs: subscribed("user-2"), notifier: notifier}

	if err := fn.RunScheduledScan(context.Background(), refDate); err != nil {
		t.Fatalf("scan: %v", err)
	}
	sent := notifier.sent()
	if len(sent) != 1 || !strings.Contains(string(sent[0]), "Bar") {
		t.Fatalf("only the subscribed user's loan should be delivered, got %d", len(sent))
	}
}

func TestRunScheduledScanSurfacesScanFailure(t *testing.T) {
	fn := &NotifierFunction{
		loans:    &fakeScanner{err: errors.New("firestore down")},
		subs:     subscribed(),
		notifier: &fakePush{},
	}
	if err := fn.RunScheduledScan(context.Background(), refDate); err == nil {
		t.Fatal("want error when the scan itself fails")
	}
}
