package extraction

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/snptkdn/library-reminder/internal/models"
)

// Sentinel errors for the two ways a model response can be unusable as a
// whole. Individual bad entries inside a usable response are dropped
// instead of failing the extraction.
var (
	ErrNoJSONFound     = errors.New("no parseable JSON object found in model response")
	ErrMalformedSchema = errors.New("model response JSON has no books array")
)

// CandidateLoan is one book entry parsed out of the model response,
// before a bookId and owner have been assigned.
type CandidateLoan struct {
	Title       string `json:"title"`
	LendingDate string `json:"lending_date"`
	DueDate     string `json:"due_date"`
}

// Extract parses the raw text returned by the extraction model into the
// well-formed loan candidates it contains.
//
// The model is asked for raw JSON but routinely wraps it in prose or
// markdown fences, so Extract takes the substring from the first '{' to
// the last '}' and parses that. This greedy match is a known limitation:
// unrelated braces before or after the real object can corrupt it.
//
// Entries missing a title or carrying a lending/due date that does not
// parse as YYYY-MM-DD are dropped individually; one malformed entry must
// not lose the rest of a legitimately extracted list.
func Extract(raw string) ([]CandidateLoan, error) {
	jsonStr, ok := jsonWindow(raw)
	if !ok {
		return nil, ErrNoJSONFound
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonStr), &envelope); err != nil {
		return nil, ErrNoJSONFound
	}

	booksRaw, ok := envelope["books"]
	if !ok {
		return nil, ErrMalformedSchema
	}
	var entries []CandidateLoan
	if err := json.Unmarshal(booksRaw, &entries); err != nil {
		return nil, ErrMalformedSchema
	}

	candidates := make([]CandidateLoan, 0, len(entries))
	for _, entry := range entries {
		if !valid(entry) {
			continue
		}
		candidates = append(candidates, entry)
	}
	return candidates, nil
}

// jsonWindow strips markdown fences and returns the first-'{' to
// last-'}' substring of raw.
func jsonWindow(raw string) (string, bool) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return cleaned[start : end+1], true
}

func valid(c CandidateLoan) bool {
	if strings.TrimSpace(c.Title) == "" {
		return false
	}
	if _, err := time.Parse(models.DateLayout, c.LendingDate); err != nil {
		return false
	}
	if _, err := time.Parse(models.DateLayout, c.DueDate); err != nil {
		return false
	}
	return true
}
