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
	ingestionInstance *services.IngestionFunction
	once              sync.Once
	initErr           error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// "HandleIngestSlip" is the entry point name configured in GCP.
	functions.HTTP("HandleIngestSlip", handleIngestSlip)
}

// main is required by the Go Functions Framework.
func main() {}

// handleIngestSlip is the HTTP handler for the slip ingestion service.
func handleIngestSlip(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		ingestionInstance, initErr = services.NewIngestion(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: Ingestion initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := ingestionInstance.Process(r.Context(), &req)
	if err != nil {
		// The specific error is already logged inside the Process method.
		http.Error(w, "Internal Server Error: ingestion failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err, "userId", req.UserID)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
