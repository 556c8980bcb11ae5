package assistant

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/teemow/inboxdraft/internal/instrumentation"
	"github.com/teemow/inboxdraft/internal/llm"
	"github.com/teemow/inboxdraft/internal/logging"
)

// Task names, used as the llm request task label.
const (
	TaskDraftReply   = "draft_reply"
	TaskComposeEmail = "compose_email"
	TaskSummarize    = "summarize"
	TaskExtractEvent = "extract_event"
)

const (
	defaultTemperature = 0.7
	longOutputTokens   = 2048
	shortOutputTokens  = 1024
)

var (
	// ErrEmptyInput is returned when the compose request has no text.
	ErrEmptyInput = errors.New("please describe the email you want to write")

	// ErrInvalidEvent is returned when an extracted event fails validation.
	ErrInvalidEvent = errors.New("invalid calendar event")
)

// SummaryCache stores summaries per (account, message).
type SummaryCache interface {
	LoadSummary(ctx context.Context, account, messageID string) (string, bool, error)
	SaveSummary(ctx context.Context, account, messageID, summary string) error
}

// ComposeInput is the compose form.
type ComposeInput struct {
	UserInput string
	Recipient string
	Subject   string
}

// SummaryRequest identifies the message to summarize. Account and
// MessageID are optional; without them the cache is bypassed.
type SummaryRequest struct {
	Account   string
	MessageID string
	Text      string

	// Refresh skips the cache lookup but still stores the new summary.
	Refresh bool
}

// Options configures a Service. Zero values are valid.
type Options struct {
	Prompts     *Prompts
	Cache       SummaryCache
	Metrics     *instrumentation.Metrics
	Logger      *slog.Logger

	// Temperature is the sampling temperature; nil means 0.7.
	Temperature *float32
}

// Service implements the four assistant tasks on top of a Generator.
type Service struct {
	gen         llm.Generator
	prompts     Prompts
	cache       SummaryCache
	metrics     *instrumentation.Metrics
	logger      *slog.Logger
	temperature float32
}

// New creates a Service.
func New(gen llm.Generator, opts Options) *Service {
	s := &Service{
		gen:         gen,
		cache:       opts.Cache,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		temperature: defaultTemperature,
	}
	if opts.Temperature != nil {
		s.temperature = *opts.Temperature
	}
	if opts.Prompts != nil {
		s.prompts = *opts.Prompts
	} else {
		s.prompts = DefaultPrompts()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Template returns the default text for insertTemplateText.
func (s *Service) Template() string { return s.prompts.Template }

// Backend names the model backend the service generates with.
func (s *Service) Backend() string { return s.gen.Name() }

func (s *Service) generate(ctx context.Context, task, prompt, system string, cfg llm.GenerationConfig) (string, error) {
	cfg.Temperature = llm.Float32(s.temperature)
	res, err := s.gen.Generate(ctx, &llm.Request{
		Contents:          llm.UserText(prompt),
		SystemInstruction: llm.SystemText(system),
		GenerationConfig:  &cfg,
		Task:              task,
	})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// DraftReply drafts a reply to emailText.
func (s *Service) DraftReply(ctx context.Context, emailText string) (string, error) {
	prompt := render(s.prompts.DraftReply, "body", emailText)
	return s.generate(ctx, TaskDraftReply, prompt, s.prompts.System,
		llm.GenerationConfig{MaxOutputTokens: longOutputTokens})
}

// ComposeEmail writes a new email from a short instruction.
func (s *Service) ComposeEmail(ctx context.Context, in ComposeInput) (string, error) {
	if strings.TrimSpace(in.UserInput) == "" {
		return "", ErrEmptyInput
	}

	prompt := render(s.prompts.ComposeEmail, "body", in.UserInput)
	if r := strings.TrimSpace(in.Recipient); r != "" {
		prompt += render(s.prompts.ComposeRecipient, "recipient", r)
	}
	if subj := strings.TrimSpace(in.Subject); subj != "" {
		prompt += render(s.prompts.ComposeSubject, "subject", subj)
	}
	return s.generate(ctx, TaskComposeEmail, prompt, s.prompts.System,
		llm.GenerationConfig{MaxOutputTokens: longOutputTokens})
}

// Summarize returns a short summary, served from the cache when possible.
// Cache failures are logged and never fail the call.
func (s *Service) Summarize(ctx context.Context, req SummaryRequest) (string, error) {
	logger := logging.FromContext(ctx, s.logger).With(logging.Task(TaskSummarize))
	cacheable := s.cache != nil && req.Account != "" && req.MessageID != ""

	if cacheable && !req.Refresh {
		summary, ok, err := s.cache.LoadSummary(ctx, req.Account, req.MessageID)
		switch {
		case err != nil:
			logger.Warn("summary cache lookup failed", logging.Err(err))
		case ok:
			s.metrics.RecordSummaryCacheLookup(ctx, instrumentation.CacheHit)
			logger.Debug("summary served from cache", logging.MessageID(req.MessageID))
			return summary, nil
		default:
			s.metrics.RecordSummaryCacheLookup(ctx, instrumentation.CacheMiss)
		}
	}

	prompt := render(s.prompts.Summarize, "body", req.Text)
	summary, err := s.generate(ctx, TaskSummarize, prompt, s.prompts.System,
		llm.GenerationConfig{MaxOutputTokens: shortOutputTokens})
	if err != nil {
		return "", err
	}

	if cacheable {
		if err := s.cache.SaveSummary(ctx, req.Account, req.MessageID, summary); err != nil {
			logger.Warn("summary cache store failed", logging.Err(err))
		}
	}
	return summary, nil
}

// ExtractEvent asks the model for at most one event in emailText. Local
// times without an offset are read in loc (UTC when nil). A result with
// Found == false means the email contains no event.
func (s *Service) ExtractEvent(ctx context.Context, emailText string, loc *time.Location) (*CalendarEvent, error) {
	prompt := render(s.prompts.ExtractEvent, "body", emailText)
	text, err := s.generate(ctx, TaskExtractEvent, prompt, "", llm.GenerationConfig{
		MaxOutputTokens:  shortOutputTokens,
		ResponseMIMEType: "application/json",
		ResponseSchema:   eventSchema,
	})
	if err != nil {
		return nil, err
	}
	return parseCalendarEvent(text, loc)
}
