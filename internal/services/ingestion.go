package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/snptkdn/library-reminder/internal/extraction"
	"github.com/snptkdn/library-reminder/internal/gcp"
	"github.com/snptkdn/library-reminder/internal/models"
	"github.com/snptkdn/library-reminder/internal/store"
)

// maxSlipPages bounds PDF slips before they reach the model; a lending
// slip is one sheet, anything larger is a wrong upload.
const maxSlipPages = 8

// slipExtensions maps the accepted slip content types to archive file
// extensions. Anything else is rejected before any collaborator call.
var slipExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

// slipExtractor is the image-understanding collaborator. Implemented by
// gcp.VertexClient; this core does not retry it.
type slipExtractor interface {
	ExtractLoanSlip(ctx context.Context, mimeType string, data []byte) (string, error)
}

// loanWriter is the slice of the loan store the pipeline needs.
type loanWriter interface {
	BatchCreate(ctx context.Context, loans []models.LoanRecord) error
}

// slipArchiver persists the raw upload for audit; a nil archiver
// disables archiving.
type slipArchiver func(ctx context.Context, objectName, contentType string, data []byte) error

// IngestionConfig holds all configuration for the ingestion service.
type IngestionConfig struct {
	ProjectID         string
	VertexAIRegion    string
	LoanCollection    string
	SlipArchiveBucket string
}

// IngestionFunction turns a photographed lending slip into persisted
// loan records: slip -> extraction model -> candidate parsing -> batch
// write.
type IngestionFunction struct {
	extractor slipExtractor
	loans     loanWriter
	archive   slipArchiver
	config    IngestionConfig
}

func loadIngestionConfig() (*IngestionConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	return &IngestionConfig{
		ProjectID:         projectID,
		VertexAIRegion:    gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		LoanCollection:    gcp.GetEnv("LOAN_COLLECTION", "loans"),
		SlipArchiveBucket: gcp.GetEnv("SLIP_ARCHIVE_BUCKET", ""),
	}, nil
}

// NewIngestion creates a new IngestionFunction instance with real GCP
// collaborators, configured from the environment.
func NewIngestion(ctx context.Context) (*IngestionFunction, error) {
	config, err := loadIngestionConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	vertexClient, err := gcp.NewVertexClient(ctx, config.ProjectID, config.VertexAIRegion)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	loanStore := store.NewLoanStore(firestoreClient, config.LoanCollection)

	var archive slipArchiver
	if config.SlipArchiveBucket != "" {
		storageClient, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		bucket := storageClient.Bucket(config.SlipArchiveBucket)
		archive = func(ctx context.Context, objectName, contentType string, data []byte) error {
			return gcp.ArchiveSlip(ctx, bucket, objectName, contentType, data)
		}
	}

	return &IngestionFunction{
		extractor: vertexClient,
		loans:     loanStore,
		archive:   archive,
		config:    *config,
	}, nil
}

// Process handles one slip upload end to end and returns the number of
// loan records written. Zero is a valid outcome: the model recognized
// no books, or none of its entries survived validation; callers cannot
// tell those apart.
func (f *IngestionFunction) Process(ctx context.Context, req *models.IngestRequest) (*models.IngestResponse, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("userId must be provided")
	}
	logCtx := slog.With("userId", req.UserID)

	contentType := req.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	ext, ok := slipExtensions[contentType]
	if !ok {
		return nil, fmt.Errorf("unsupported slip content type %q", contentType)
	}

	data, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		return nil, fmt.Errorf("imageBase64 is not valid base64: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("slip image is empty")
	}

	if contentType == "application/pdf" {
		if err := validatePDFSlip(data); err != nil {
			return nil, err
		}
	}

	// Archive the original upload for audit and reprocessing. Losing
	// the archive copy must not lose the ingest.
	if f.archive != nil {
		objectName := fmt.Sprintf("%s/%s%s", req.UserID, contentHash(data), ext)
		if err := f.archive(ctx, objectName, contentType, data); err != nil {
			logCtx.Warn("Failed to archive slip upload; continuing.", "error", err, "objectName", objectName)
		}
	}

	rawText, err := f.extractor.ExtractLoanSlip(ctx, contentType, data)
	if err != nil {
		logCtx.Error("Call to extraction model failed", "error", err)
		return nil, fmt.Errorf("slip extraction service failed: %w", err)
	}

	candidates, err := extraction.Extract(rawText)
	if err != nil {
		logCtx.Error("Failed to parse model response", "error", err, "responseBody", rawText)
		return nil, fmt.Errorf("failed to extract loans from model response: %w", err)
	}
	if len(candidates) == 0 {
		logCtx.Info("No books recognized on slip; nothing to store.")
		return &models.IngestResponse{Status: "success", CreatedCount: 0}, nil
	}

	now := time.Now()
	loans := make([]models.LoanRecord, 0, len(candidates))
	for _, c := range candidates {
		loans = append(loans, models.LoanRecord{
			UserID:      req.UserID,
			BookID:      uuid.NewString(),
			Title:       c.Title,
			LendingDate: c.LendingDate,
			DueDate:     c.DueDate,
			CreatedAt:   now,
		})
	}

	if err := f.loans.BatchCreate(ctx, loans); err != nil {
		logCtx.Error("Failed to persist loan batch", "error", err, "loanCount", len(loans))
		return nil, fmt.Errorf("failed to store loan records: %w", err)
	}

	logCtx.Info("Ingestion complete.", "createdCount", len(loans))
	return &models.IngestResponse{Status: "success", CreatedCount: len(loans)}, nil
}

// validatePDFSlip rejects broken or oversized PDF uploads before the
// model is paid to look at them.
func validatePDFSlip(data []byte) error {
	pageCount, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return fmt.Errorf("slip PDF could not be read: %w", err)
	}
	if pageCount == 0 {
		return fmt.Errorf("slip PDF has no pages")
	}
	if pageCount > maxSlipPages {
		return fmt.Errorf("slip PDF has %d pages, maximum is %d", pageCount, maxSlipPages)
	}
	return nil
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
