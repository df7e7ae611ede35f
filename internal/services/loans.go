package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/snptkdn/library-reminder/internal/gcp"
	"github.com/snptkdn/library-reminder/internal/models"
	"github.com/snptkdn/library-reminder/internal/store"
)

// loanReader is the list/delete surface of the loan store.
type loanReader interface {
	List(ctx context.Context, userID string) ([]models.LoanRecord, error)
	Delete(ctx context.Context, userID, bookID string) error
}

// LoanManagerFunction serves the interactive loan operations.
type LoanManagerFunction struct {
	loans loanReader
}

// NewLoanManager creates a new LoanManagerFunction instance configured
// from the environment.
func NewLoanManager(ctx context.Context) (*LoanManagerFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return &LoanManagerFunction{
		loans: store.NewLoanStore(firestoreClient, gcp.GetEnv("LOAN_COLLECTION", "loans")),
	}, nil
}

// List returns every loan owned by the user; an empty slice is a normal
// result, not an error.
func (f *LoanManagerFunction) List(ctx context.Context, userID string) (*models.ListLoansResponse, error) {
	if userID == "" {
		return nil, fmt.Errorf("userId must be provided")
	}
	loans, err := f.loans.List(ctx, userID)
	if err != nil {
		slog.Error("Failed to list loans", "error", err, "userId", userID)
		return nil, err
	}
	if loans == nil {
		loans = []models.LoanRecord{}
	}
	return &models.ListLoansResponse{Loans: loans}, nil
}

// Delete removes one loan. Deleting an already-absent loan succeeds.
func (f *LoanManagerFunction) Delete(ctx context.Context, req *models.DeleteLoanRequest) error {
	if req.UserID == "" || req.BookID == "" {
		return fmt.Errorf("userId and bookId must be provided")
	}
	if err := f.loans.Delete(ctx, req.UserID, req.BookID); err != nil {
		slog.Error("Failed to delete loan", "error", err, "userId", req.UserID, "bookId", req.BookID)
		return err
	}
	slog.Info("Loan deleted.", "userId", req.UserID, "bookId", req.BookID)
	return nil
}
