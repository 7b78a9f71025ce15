package parsers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/chequetally/backend/src/models"
	"github.com/chequetally/backend/src/processors"
)

var (
	// ErrExtractionUnavailable means the extraction backend could not be reached or failed on every chunk.
	ErrExtractionUnavailable = fmt.Errorf("%w: extraction service unavailable", processors.ErrExtraction)
	// ErrExtractionMalformed means the backend answered but nothing parseable came back.
	ErrExtractionMalformed = fmt.Errorf("%w: extraction output malformed", processors.ErrExtraction)
	// ErrUnknownSource is returned by GetExtractor for an unregistered source name.
	ErrUnknownSource = errors.New("unknown extraction source")
)

const (
	SourceLLM = "llm"
	SourceCSV = "csv"
)

// CompanyExtraction is the company-side output of an extractor, in the raw extraction schema.
type CompanyExtraction struct {
	Cheques []models.RawCompanyCheque `json:"cheques"`
	Notes   string                    `json:"extraction_notes"`
}

// BankExtraction is the bank-side output of an extractor.
type BankExtraction struct {
	Cheques []models.RawBankCheque `json:"cheques"`
	Notes   string                 `json:"extraction_notes"`
}

// Extractor turns raw uploaded text into candidate cheque records.
type Extractor interface {
	ExtractCompany(ctx context.Context, text string) (*CompanyExtraction, error)
	ExtractBank(ctx context.Context, text string) (*BankExtraction, error)
}

// Registry maps an upload source name to its extractor.
type Registry map[string]Extractor

// Sources lists the registered source names, sorted.
func (r Registry) Sources() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetExtractor is a factory function that returns the correct extractor for a given source.
func GetExtractor(source string, registry Registry) (Extractor, error) {
	name := strings.ToLower(strings.TrimSpace(source))
	if e, ok := registry[name]; ok && e != nil {
		return e, nil
	}
	return nil, fmt.Errorf("%w: '%s' (available: %s)", ErrUnknownSource, source, strings.Join(registry.Sources(), ", "))
}

// ChunkText splits text into pieces of at most size characters, breaking only at line ends.
// A single line longer than size becomes its own chunk.
func ChunkText(text string, size int) []string {
	if size <= 0 || len([]rune(text)) <= size {
		return []string{text}
	}
	var chunks []string
	var current strings.Builder
	currentLen := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		n := len([]rune(line))
		if currentLen+n > size && currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
		current.WriteString(line)
		currentLen += n
	}
	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}
	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}
