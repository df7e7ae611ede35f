package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/snptkdn/library-reminder/internal/models"
	"github.com/snptkdn/library-reminder/internal/services"
)

var (
	managerInstance *services.LoanManagerFunction
	once            sync.Once
	initErr         error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// "HandleLoans" is the entry point name configured in GCP.
	functions.HTTP("HandleLoans", handleLoans)
}

// main is required by the Go Functions Framework.
func main() {}

// handleLoans serves the interactive loan operations: GET lists a
// user's loans, DELETE removes one.
func handleLoans(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		managerInstance, initErr = services.NewLoanManager(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: LoanManager initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	switch r.Method {
	case http.MethodGet:
		listLoans(w, r)
	case http.MethodDelete:
		deleteLoan(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func listLoans(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	res, err := managerInstance.List(r.Context(), userID)
	if err != nil {
		http.Error(w, "Internal Server Error: listing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err, "userId", userID)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}

func deleteLoan(w http.ResponseWriter, r *http.Request) {
	var req models.DeleteLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	if err := managerInstance.Delete(r.Context(), &req); err != nil {
		http.Error(w, "Internal Server Error: delete failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(models.StatusResponse{Status: "success"}); err != nil {
		slog.Error("Failed to write response", "error", err, "userId", req.UserID)
	}
}
