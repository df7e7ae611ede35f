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
	subscriberInstance *services.SubscriberFunction
	once               sync.Once
	initErr            error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// "HandleSubscribe" is the entry point name configured in GCP.
	functions.HTTP("HandleSubscribe", handleSubscribe)
}

// main is required by the Go Functions Framework.
func main() {}

// handleSubscribe stores the browser push subscription for a user.
func handleSubscribe(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		subscriberInstance, initErr = services.NewSubscriber(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: Subscriber initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	if err := subscriberInstance.Put(r.Context(), &req); err != nil {
		http.Error(w, "Bad Request: invalid subscription", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(models.StatusResponse{Status: "success"}); err != nil {
		slog.Error("Failed to write response", "error", err, "userId", req.UserID)
	}
}
