package gcp

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// --- Slip Extractor Model Prompts ---
const SlipExtractorSystemPrompt = "You are a library lending slip parser. Your task is to read a photographed or scanned lending slip and extract every borrowed book on it. You must output your response as a single valid JSON object and nothing else."
const SlipExtractorUserPrompt = `Analyze the provided lending slip. Extract every book entry you can identify.

Follow these rules precisely:
1.  For each book, extract its title, the lending date, and the due (return) date.
2.  Normalize all dates to the YYYY-MM-DD format. Slips may print dates in other formats or in Japanese era notation; convert them.
3.  Output a single JSON object with exactly one key, "books", whose value is an array of objects with exactly three keys: "title", "lending_date", "due_date".
4.  If a field is unreadable, omit that book entirely rather than guessing.
5.  Output ONLY the JSON object. Do not include any text before or after it, and do not wrap it in code fences.

Example output format:
{
  "books": [
    {
      "title": "The Go Programming Language",
      "lending_date": "2025-06-01",
      "due_date": "2025-06-15"
    }
  ]
}`

// VertexClient holds the pre-configured generative model for slip extraction.
type VertexClient struct {
	SlipExtractorModel *genai.GenerativeModel
	baseClient         *genai.Client
}

// NewVertexClient creates a new client holding the slip extractor model.
func NewVertexClient(ctx context.Context, projectID, region string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	extractorModel := baseClient.GenerativeModel("gemini-1.5-pro")
	extractorModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SlipExtractorSystemPrompt)},
	}
	extractorModel.GenerationConfig = genai.GenerationConfig{
		// Force JSON output. This is a critical setting for this model.
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0), // Low temp for deterministic, structured output
	}
	extractorModel.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}

	return &VertexClient{
		SlipExtractorModel: extractorModel,
		baseClient:         baseClient,
	}, nil
}

// ExtractLoanSlip sends the slip bytes to the extractor model and returns
// the raw text of the response. The caller is responsible for parsing;
// despite the JSON response type, the text may still carry fences or
// prose and is treated as untrusted.
func (c *VertexClient) ExtractLoanSlip(ctx context.Context, mimeType string, data []byte) (string, error) {
	slipPart := genai.Blob{
		MIMEType: mimeType,
		Data:     data,
	}
	prompt := genai.Text(SlipExtractorUserPrompt)

	resp, err := c.SlipExtractorModel.GenerateContent(ctx, slipPart, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	return textContent(resp), nil
}

// textContent concatenates the text parts of the first candidate.
func textContent(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			out.WriteString(string(txt))
		}
	}
	return out.String()
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
