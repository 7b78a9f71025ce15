package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chequetally/backend/src/logger"
	"github.com/chequetally/backend/src/models"
	"github.com/chequetally/backend/src/parsers"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrNoAPIKey is returned when the extractor is used without credentials.
var ErrNoAPIKey = fmt.Errorf("%w: openai api key not configured", parsers.ErrExtractionUnavailable)

// Config holds the chat-completion settings for the extractor.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	ChunkSize  int
}

// Extractor asks a chat-completion model to turn free text into cheque records.
type Extractor struct {
	cfg    Config
	client *openai.Client
}

func NewExtractor(cfg Config) *Extractor {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 4000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	e := &Extractor{cfg: cfg}
	if cfg.APIKey != "" {
		opts := []option.RequestOption{
			option.WithAPIKey(cfg.APIKey),
			option.WithMaxRetries(cfg.MaxRetries),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
		client := openai.NewClient(opts...)
		e.client = &client
	}
	return e
}

type companyReply struct {
	Cheques []models.RawCompanyCheque `json:"cheques"`
	Notes   string                    `json:"extraction_notes"`
}

type bankReply struct {
	Cheques []models.RawBankCheque `json:"cheques"`
	Notes   string                 `json:"extraction_notes"`
}

func (e *Extractor) ExtractCompany(ctx context.Context, text string) (*CompanyExtraction, error) {
	out := &parsers.CompanyExtraction{Cheques: []models.RawCompanyCheque{}}
	notes, err := e.run(ctx, companySystemPrompt, text, func(reply string) (string, error) {
		var r companyReply
		if err := decodeJSON(reply, &r); err != nil {
			return "", err
		}
		out.Cheques = append(out.Cheques, r.Cheques...)
		return r.Notes, nil
	})
	if err != nil {
		return nil, err
	}
	out.Notes = notes
	return out, nil
}

func (e *Extractor) ExtractBank(ctx context.Context, text string) (*BankExtraction, error) {
	out := &parsers.BankExtraction{Cheques: []models.RawBankCheque{}}
	notes, err := e.run(ctx, bankSystemPrompt, text, func(reply string) (string, error) {
		var r bankReply
		if err := decodeJSON(reply, &r); err != nil {
			return "", err
		}
		out.Cheques = append(out.Cheques, r.Cheques...)
		return r.Notes, nil
	})
	if err != nil {
		return nil, err
	}
	out.Notes = notes
	return out, nil
}

// Aliases so callers of this package need not import parsers for the result types.
type (
	CompanyExtraction = parsers.CompanyExtraction
	BankExtraction    = parsers.BankExtraction
)

// run sends each chunk in order. Failures are recorded per chunk; the call only fails
// when no chunk produced a usable reply.
func (e *Extractor) run(ctx context.Context, system, text string, decode func(string) (string, error)) (string, error) {
	if e.client == nil {
		return "", ErrNoAPIKey
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no text to extract from", parsers.ErrExtractionMalformed)
	}

	log := logger.FromContext(ctx)
	chunks := parsers.ChunkText(text, e.cfg.ChunkSize)
	var notes []string
	parsed, callFailures := 0, 0

	for i, chunk := range chunks {
		tag := fmt.Sprintf("[chunk %d/%d]", i+1, len(chunks))
		reply, err := e.complete(ctx, system, chunk)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", fmt.Errorf("%w: %v", parsers.ErrExtractionUnavailable, ctxErr)
			}
			log.Warn("LLM extraction call failed", "chunk", i+1, "chunks", len(chunks), "error", err)
			notes = append(notes, fmt.Sprintf("%s extraction failed: %v", tag, err))
			callFailures++
			continue
		}
		note, err := decode(reply)
		if err != nil {
			log.Warn("LLM reply was not valid JSON", "chunk", i+1, "error", err)
			notes = append(notes, fmt.Sprintf("%s unparseable reply: %v", tag, err))
			continue
		}
		parsed++
		if note = strings.TrimSpace(note); note != "" {
			notes = append(notes, fmt.Sprintf("%s %s", tag, note))
		}
	}

	summary := fmt.Sprintf("Processed %d chunk(s).", len(chunks))
	if len(notes) > 0 {
		summary += " " + strings.Join(notes, " | ")
	}
	switch {
	case parsed > 0:
		return summary, nil
	case callFailures == len(chunks):
		return "", fmt.Errorf("%w: %s", parsers.ErrExtractionUnavailable, summary)
	default:
		return "", fmt.Errorf("%w: %s", parsers.ErrExtractionMalformed, summary)
	}
}

func (e *Extractor) complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(e.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage("Text to extract from:\n" + user),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// decodeJSON parses a model reply, tolerating markdown code fences and prose around the object.
func decodeJSON(reply string, v any) error {
	s := strings.TrimSpace(reply)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```JSON")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	if start, end := strings.Index(s, "{"), strings.LastIndex(s, "}"); start >= 0 && end > start {
		s = s[start : end+1]
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	return nil
}
