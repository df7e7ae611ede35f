package models

import "time"

// DateLayout is the calendar-date format used everywhere in this system.
// Lending and due dates are stored as plain YYYY-MM-DD strings with no
// time component, so Firestore equality queries work directly on them.
const DateLayout = "2006-01-02"

// LoanRecord is one tracked borrowed book for a user in Firestore.
// Records are created in batches by the ingestion pipeline and are never
// updated; the only mutation after creation is an explicit delete.
type LoanRecord struct {
	UserID      string    `firestore:"userId" json:"userId"`
	BookID      string    `firestore:"bookId" json:"bookId"`
	Title       string    `firestore:"title" json:"title"`
	LendingDate string    `firestore:"lendingDate" json:"lendingDate"`
	DueDate     string    `firestore:"dueDate" json:"dueDate"`
	CreatedAt   time.Time `firestore:"createdAt" json:"createdAt"`
}
