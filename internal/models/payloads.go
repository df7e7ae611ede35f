package models

// These structs define the JSON payloads exchanged between the HTTP
// routing layer, the scheduler trigger, and the worker functions.

// IngestRequest is the input for the slip-ingestor function. ImageBase64
// carries the photographed lending slip; ContentType must be one of the
// slip formats the pipeline accepts (JPEG, PNG, PDF).
type IngestRequest struct {
	UserID      string `json:"userId"`
	ContentType string `json:"contentType"`
	ImageBase64 string `json:"imageBase64"`
}

// IngestResponse reports how many loan records were written. Zero is a
// valid outcome when the model recognized no books on the slip.
type IngestResponse struct {
	Status       string `json:"status"`
	CreatedCount int    `json:"createdCount"`
}

// ListLoansResponse is the output of the loan-manager list operation.
type ListLoansResponse struct {
	Loans []LoanRecord `json:"loans"`
}

// DeleteLoanRequest identifies one loan to remove.
type DeleteLoanRequest struct {
	UserID string `json:"userId"`
	BookID string `json:"bookId"`
}

// SubscribeRequest carries the browser push subscription as raw JSON.
type SubscribeRequest struct {
	UserID       string `json:"userId"`
	Subscription string `json:"subscription"`
}

// StatusResponse is the generic acknowledgement for write operations.
type StatusResponse struct {
	Status string `json:"status"`
}

// ScheduledScanMessage is the Pub/Sub payload published by Cloud
// Scheduler. Source discriminates the triggering schedule
// ("morning_schedule", "evening_schedule") and is used by the dispatch
// layer for routing and by logs for traceability.
type ScheduledScanMessage struct {
	Source string `json:"source"`
}
