package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/snptkdn/library-reminder/internal/gcp"
	"github.com/snptkdn/library-reminder/internal/models"
	"github.com/snptkdn/library-reminder/internal/services"
)

// pubSubEnvelope is the CloudEvent data shape for a Pub/Sub-triggered
// function; Data is the base64-decoded scheduler message.
type pubSubEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
	} `json:"message"`
}

var (
	notifierInstance *services.NotifierFunction
	location         *time.Location
	once             sync.Once
	initErr          error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// "HandleScheduledScan" is the entry point name configured in GCP.
	functions.CloudEvent("HandleScheduledScan", handleScheduledScan)
}

// main is required by the Go Functions Framework.
func main() {}

// handleScheduledScan is triggered by Cloud Scheduler through Pub/Sub.
// The reference date is "today" at scan time, truncated to midnight in
// one fixed timezone; due-date arithmetic is never per-user.
func handleScheduledScan(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		tz := gcp.GetEnv("TIMEZONE", "Asia/Tokyo")
		location, initErr = time.LoadLocation(tz)
		if initErr != nil {
			initErr = fmt.Errorf("invalid TIMEZONE %q: %w", tz, initErr)
			return
		}
		notifierInstance, initErr = services.NewNotifier(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: Notifier initialization failed", "error", initErr)
		return initErr
	}

	var envelope pubSubEnvelope
	if err := json.Unmarshal(e.Data(), &envelope); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	var msg models.ScheduledScanMessage
	if len(envelope.Message.Data) > 0 {
		if err := json.Unmarshal(envelope.Message.Data, &msg); err != nil {
			slog.Warn("Scheduler message is not JSON; proceeding without source.", "error", err)
		}
	}
	slog.Info("Scheduled scan triggered.", "source", msg.Source)

	now := time.Now().In(location)
	referenceDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, location)

	return notifierInstance.RunScheduledScan(ctx, referenceDate)
}
