package services

import (
	"context"
	"testing"

	"github.com/snptkdn/library-reminder/internal/models"
)

type fakeLoanReader struct {
	loans   map[string][]models.LoanRecord
	deleted []string
}

func (f *fakeLoanReader) List(ctx context.Context, userID string) ([]models.LoanRecord, error) {
	return f.loans[userID], nil
}

func (f *fakeLoanReader) Delete(ctx context.Context, userID, bookID string) error {
	// Mirrors the store contract: deleting an absent loan succeeds.
	f.deleted = append(f.deleted, userID+"#"+bookID)
	return nil
}

func TestListReturnsEmptySliceNotNil(t *testing.T) {
	fn := &LoanManagerFunction{loans: &fakeLoanReader{}}
	resp, err := fn.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if resp.Loans == nil {
		t.Fatal("loans must serialize as [], not null")
	}
	if len(resp.Loans) != 0 {
		t.Fatalf("want no loans, got %d", len(resp.Loans))
	}
}

func TestListScopedToUser(t *testing.T) {
	reader := &fakeLoanReader{loans: map[string][]models.LoanRecord{
		"user-1": {{UserID: "user-1", BookID: "b1", Title: "Foo"}},
		"user-2": {{UserID: "user-2", BookID: "b2", Title: "Bar"}},
	}}
	fn := &LoanManagerFunction{loans: reader}

	resp, err := fn.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(resp.Loans) != 1 || resp.Loans[0].Title != "Foo" {
		t.Fatalf("unexpected loans: %+v", resp.Loans)
	}
}

func TestDeleteAbsentLoanSucceeds(t *testing.T) {
	reader := &fakeLoanReader{}
	fn := &LoanManagerFunction{loans: reader}

	err := fn.Delete(context.Background(), &models.DeleteLoanRequest{UserID: "user-1", BookID: "never-existed"})
	if err != nil {
		t.Fatalf("delete of absent loan must succeed: %v", err)
	}
	if len(reader.deleted) != 1 {
		t.Fatalf("delete not forwarded to store: %v", reader.deleted)
	}
}

func TestDeleteValidation(t *testing.T) {
	fn := &LoanManagerFunction{loans: &fakeLoanReader{}}
	if err := fn.Delete(context.Background(), &models.DeleteLoanRequest{UserID: "user-1"}); err == nil {
		t.Fatal("want error for missing bookId")
	}
	if err := fn.Delete(context.Background(), &models.DeleteLoanRequest{BookID: "b1"}); err == nil {
		t.Fatal("want error for missing userId")
	}
}
