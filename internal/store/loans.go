package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/snptkdn/library-reminder/internal/models"
	"google.golang.org/api/iterator"
)

// LoanStore owns the persisted loan records. All operations are scoped
// by userId except FindDueSoon, which the scheduled scan runs across
// all users.
type LoanStore struct {
	client     *firestore.Client
	collection string
}

// NewLoanStore returns a store over the given Firestore collection.
func NewLoanStore(client *firestore.Client, collection string) *LoanStore {
	return &LoanStore{client: client, collection: collection}
}

// loanDocID builds the document ID for a loan. BookIDs are UUIDs, so the
// separator can never collide with an ID component.
func loanDocID(userID, bookID string) string {
	return fmt.Sprintf("%s#%s", userID, bookID)
}

// BatchCreate writes all records in a single Firestore write batch. The
// batch commit is all-or-nothing, so a slip's records become visible
// atomically; either every record lands or none does.
func (s *LoanStore) BatchCreate(ctx context.Context, loans []models.LoanRecord) error {
	if len(loans) == 0 {
		return nil
	}

	batch := s.client.Batch()
	for _, loan := range loans {
		ref := s.client.Collection(s.collection).Doc(loanDocID(loan.UserID, loan.BookID))
		batch.Set(ref, loan)
	}
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit loan batch: %w", err)
	}
	return nil
}

// List returns every loan owned by userID. Order is unspecified.
func (s *LoanStore) List(ctx context.Context, userID string) ([]models.LoanRecord, error) {
	it := s.client.Collection(s.collection).Where("userId", "==", userID).Documents(ctx)
	defer it.Stop()

	var loans []models.LoanRecord
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list loans for user %s: %w", userID, err)
		}
		var loan models.LoanRecord
		if err := doc.DataTo(&loan); err != nil {
			return nil, fmt.Errorf("failed to decode loan %s: %w", doc.Ref.ID, err)
		}
		loans = append(loans, loan)
	}
	return loans, nil
}

// Delete removes one loan. Deleting a document that does not exist is a
// successful no-op in Firestore, which is exactly the idempotent delete
// this store promises.
func (s *LoanStore) Delete(ctx context.Context, userID, bookID string) error {
	ref := s.client.Collection(s.collection).Doc(loanDocID(userID, bookID))
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete loan %s: %w", ref.ID, err)
	}
	return nil
}

// dueWindow returns the inclusive {today, tomorrow} date strings for a
// reference time.
func dueWindow(ref time.Time) []string {
	return []string{
		ref.Format(models.DateLayout),
		ref.AddDate(0, 0, 1).Format(models.DateLayout),
	}
}

// FindDueSoon returns every loan, across all users, whose due date is on
// the reference date or the day after. Read-only.
func (s *LoanStore) FindDueSoon(ctx context.Context, ref time.Time) ([]models.LoanRecord, error) {
	it := s.client.Collection(s.collection).Where("dueDate", "in", dueWindow(ref)).Documents(ctx)
	defer it.Stop()

	var loans []models.LoanRecord
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan for due loans: %w", err)
		}
		var loan models.LoanRecord
		if err := doc.DataTo(&loan); err != nil {
			return nil, fmt.Errorf("failed to decode loan %s: %w", doc.Ref.ID, err)
		}
		loans = append(loans, loan)
	}
	return loans, nil
}
