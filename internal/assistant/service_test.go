package assistant

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxdraft/internal/llm"
)

type fakeGenerator struct {
	mu       sync.Mutex
	requests []*llm.Request
	text     string
	err      error
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Generate(_ context.Context, req *llm.Request) (*llm.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Result{Text: f.text, FinishReason: "STOP"}, nil
}

func (f *fakeGenerator) last() *llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type memoryCache struct {
	entries map[string]string
	loadErr error
	saves   int
}

func newMemoryCache() *memoryCache { return &memoryCache{entries: map[string]string{}} }

func (m *memoryCache) LoadSummary(_ context.Context, account, id string) (string, bool, error) {
	if m.loadErr != nil {
		return "", false, m.loadErr
	}
	s, ok := m.entries[account+"/"+id]
	return s, ok, nil
}

func (m *memoryCache) SaveSummary(_ context.Context, account, id, summary string) error {
	m.saves++
	m.entries[account+"/"+id] = summary
	return nil
}

const systemText = "You are a helpful email assistant. Respond directly without extended thinking."

func TestDraftReply(t *testing.T) {
	gen := &fakeGenerator{text: "Thanks, Thursday works."}
	svc := New(gen, Options{})

	reply, err := svc.DraftReply(context.Background(), "Are you free Thursday?")
	require.NoError(t, err)
	assert.Equal(t, "Thanks, Thursday works.", reply)

	req := gen.last()
	assert.Equal(t, TaskDraftReply, req.Task)
	assert.Equal(t,
		"You must always answer in English. Generate a professional and concise draft reply to the following email:\n\nAre you free Thursday?",
		req.PromptText())
	assert.Equal(t, systemText, req.SystemInstructionText())
	assert.EqualValues(t, 2048, req.GenerationConfig.MaxOutputTokens)
	assert.InDelta(t, 0.7, *req.GenerationConfig.Temperature, 0.0001)
	assert.Equal(t, llm.RoleUser, req.Contents[0].Role)
}

func TestTemperatureZeroIsKept(t *testing.T) {
	gen := &fakeGenerator{text: "ok"}
	svc := New(gen, Options{Temperature: llm.Float32(0)})

	_, err := svc.DraftReply(context.Background(), "hi")
	require.NoError(t, err)
	require.NotNil(t, gen.last().GenerationConfig.Temperature)
	assert.Zero(t, *gen.last().GenerationConfig.Temperature)
}

func TestComposeEmail(t *testing.T) {
	base := "You must always answer in English. Generate a professional and well-structured email based on the following request:\n\n"

	tests := []struct {
		name       string
		in         ComposeInput
		wantPrompt string
		wantErr    error
	}{
		{
			name:       "input only",
			in:         ComposeInput{UserInput: "ask for the report"},
			wantPrompt: base + "ask for the report",
		},
		{
			name:       "recipient and subject",
			in:         ComposeInput{UserInput: "ask for the report", Recipient: "ana@example.com", Subject: "Q3 report"},
			wantPrompt: base + "ask for the report\n\nRecipient: ana@example.com\n\nSubject: Q3 report",
		},
		{
			name:       "placeholder in user text is not expanded",
			in:         ComposeInput{UserInput: "mention {{subject}} literally", Subject: "S"},
			wantPrompt: base + "mention {{subject}} literally\n\nSubject: S",
		},
		{
			name:    "empty input",
			in:      ComposeInput{UserInput: "   ", Recipient: "ana@example.com"},
			wantErr: ErrEmptyInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{text: "Dear Ana"}
			svc := New(gen, Options{})

			out, err := svc.ComposeEmail(context.Background(), tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, gen.requests, "no model call for invalid input")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Dear Ana", out)
			assert.Equal(t, tt.wantPrompt, gen.last().PromptText())
			assert.Equal(t, TaskComposeEmail, gen.last().Task)
		})
	}
}

func TestSummarize_Cache(t *testing.T) {
	gen := &fakeGenerator{text: "Meeting moved to Friday."}
	cache := newMemoryCache()
	svc := New(gen, Options{Cache: cache})
	ctx := context.Background()
	req := SummaryRequest{Account: "me@example.com", MessageID: "m1", Text: "long email"}

	first, err := svc.Summarize(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Meeting moved to Friday.", first)
	assert.Len(t, gen.requests, 1)
	assert.Equal(t, 1, cache.saves)

	assert.Equal(t, "Generate a concise summary for the given email:\n\nlong email", gen.last().PromptText())
	assert.EqualValues(t, 1024, gen.last().GenerationConfig.MaxOutputTokens)

	gen.text = "changed"
	second, err := svc.Summarize(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first, second, "second call is served from the cache")
	assert.Len(t, gen.requests, 1)

	req.Refresh = true
	third, err := svc.Summarize(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "changed", third)
	assert.Len(t, gen.requests, 2)
}

func TestSummarize_CacheFailureFallsThrough(t *testing.T) {
	gen := &fakeGenerator{text: "summary"}
	cache := newMemoryCache()
	cache.loadErr = errors.New("disk full")
	svc := New(gen, Options{Cache: cache})

	out, err := svc.Summarize(context.Background(), SummaryRequest{Account: "a", MessageID: "m", Text: "t"})
	require.NoError(t, err)
	assert.Equal(t, "summary", out)
}

func TestSummarize_NoCacheWithoutKey(t *testing.T) {
	gen := &fakeGenerator{text: "summary"}
	cache := newMemoryCache()
	svc := New(gen, Options{Cache: cache})

	_, err := svc.Summarize(context.Background(), SummaryRequest{Text: "t"})
	require.NoError(t, err)
	assert.Zero(t, cache.saves)
}

func TestSummarize_ModelErrorPropagates(t *testing.T) {
	gen := &fakeGenerator{err: llm.ErrNoCandidates}
	svc := New(gen, Options{Cache: newMemoryCache()})

	_, err := svc.Summarize(context.Background(), SummaryRequest{Account: "a", MessageID: "m", Text: "t"})
	assert.ErrorIs(t, err, llm.ErrNoCandidates)
}

func TestExtractEvent(t *testing.T) {
	cet := time.FixedZone("CET", 60*60)

	tests := []struct {
		name      string
		answer    string
		wantFound bool
		wantStart time.Time
		wantEnd   time.Time
		wantErr   error
	}{
		{
			name:   "no event",
			answer: `{"hasCalendarEvent": false}`,
		},
		{
			name:      "rfc3339",
			answer:    `{"hasCalendarEvent": true, "title": "Sync", "start": "2025-03-06T15:00:00Z", "end": "2025-03-06T15:30:00Z"}`,
			wantFound: true,
			wantStart: time.Date(2025, 3, 6, 15, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 3, 6, 15, 30, 0, 0, time.UTC),
		},
		{
			name:      "local time without end in caller zone",
			answer:    "```json\n{\"hasCalendarEvent\": true, \"title\": \"Lunch\", \"start\": \"2025-03-06T12:00:00\"}\n```",
			wantFound: true,
			wantStart: time.Date(2025, 3, 6, 12, 0, 0, 0, cet),
			wantEnd:   time.Date(2025, 3, 6, 13, 0, 0, 0, cet),
		},
		{
			name:    "missing title",
			answer:  `{"hasCalendarEvent": true, "start": "2025-03-06T12:00:00Z"}`,
			wantErr: ErrInvalidEvent,
		},
		{
			name:    "unparseable start",
			answer:  `{"hasCalendarEvent": true, "title": "X", "start": "next Thursday"}`,
			wantErr: ErrInvalidEvent,
		},
		{
			name:    "end before start",
			answer:  `{"hasCalendarEvent": true, "title": "X", "start": "2025-03-06T12:00:00Z", "end": "2025-03-06T11:00:00Z"}`,
			wantErr: ErrInvalidEvent,
		},
		{
			name:    "not json",
			answer:  "I could not find an event.",
			wantErr: ErrInvalidEvent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{text: tt.answer}
			svc := New(gen, Options{})

			ev, err := svc.ExtractEvent(context.Background(), "See you Thursday at noon.", cet)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, ev.Found)
			if tt.wantFound {
				assert.True(t, tt.wantStart.Equal(ev.Start), "start = %s", ev.Start)
				assert.True(t, tt.wantEnd.Equal(ev.End), "end = %s", ev.End)
			}

			req := gen.last()
			assert.Equal(t, TaskExtractEvent, req.Task)
			assert.Nil(t, req.SystemInstruction)
			assert.Equal(t, "application/json", req.GenerationConfig.ResponseMIMEType)
			assert.Equal(t, []string{"hasCalendarEvent"}, req.GenerationConfig.ResponseSchema.Required)
			assert.Contains(t, req.PromptText(), "Email:\nSee you Thursday at noon.\n")
		})
	}
}

func TestLoadPrompts(t *testing.T) {
	defaults := DefaultPrompts()
	require.NoError(t, defaults.Validate())
	assert.Equal(t, systemText, defaults.System)

	p, err := LoadPrompts("")
	require.NoError(t, err)
	assert.Equal(t, defaults, p)

	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("summarize: \"TL;DR:\\n{{body}}\"\n"), 0o600))
	p, err = LoadPrompts(path)
	require.NoError(t, err)
	assert.Equal(t, "TL;DR:\n{{body}}", p.Summarize)
	assert.Equal(t, defaults.DraftReply, p.DraftReply, "unset keys keep their default")

	require.NoError(t, os.WriteFile(path, []byte("summarize: \"no placeholder\"\n"), 0o600))
	_, err = LoadPrompts(path)
	assert.ErrorContains(t, err, "summarize")
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence(`  {"a":1} `))
}
