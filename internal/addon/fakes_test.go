package addon

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/teemow/inboxdraft/internal/assistant"
	"github.com/teemow/inboxdraft/internal/calendar"
	"github.com/teemow/inboxdraft/internal/cards"
	"github.com/teemow/inboxdraft/internal/gmail"
)

var testURLs = cards.ActionURLs{Base: "https://addon.example.com"}

type fakeMessages struct {
	mu       sync.Mutex
	messages map[string]*gmail.Message
	latest   map[string]*gmail.Message
	drafts   []string
	draftErr error
}

func (f *fakeMessages) GetMessage(_ context.Context, id string) (*gmail.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[id]
	if !ok {
		return nil, gmail.ErrNoMessage
	}
	return m, nil
}

func (f *fakeMessages) LatestInThread(_ context.Context, threadID string) (*gmail.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.latest[threadID]
	if !ok {
		return nil, gmail.ErrNoMessage
	}
	return m, nil
}

func (f *fakeMessages) CreateReplyDraft(_ context.Context, orig *gmail.Message, body string) (*gmail.Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.draftErr != nil {
		return nil, f.draftErr
	}
	f.drafts = append(f.drafts, body)
	return &gmail.Draft{ID: "d1", ThreadID: orig.ThreadID}, nil
}

type fakeCalendar struct {
	mu     sync.Mutex
	inputs []calendar.EventInput
	err    error
}

func (f *fakeCalendar) CreateEvent(_ context.Context, _ string, in calendar.EventInput) (*calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, in)
	return &calendar.Event{ID: "e1", Summary: in.Summary, Start: in.Start, End: in.End}, nil
}

type fakeCollaborators struct {
	messages *fakeMessages
	calendar *fakeCalendar
	err      error
}

func (f *fakeCollaborators) Messages(context.Context, *Event) (MessageStore, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.messages, nil
}

func (f *fakeCollaborators) Calendar(context.Context, *Event) (CalendarStore, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.calendar, nil
}

type fakeAssistant struct {
	mu        sync.Mutex
	reply     string
	draft     string
	summary   string
	event     *assistant.CalendarEvent
	err       error
	eventErr  error
	composed  []assistant.ComposeInput
	summaries []assistant.SummaryRequest
	replies   int
}

func (f *fakeAssistant) DraftReply(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies++
	return f.reply, f.err
}

func (f *fakeAssistant) ComposeEmail(_ context.Context, in assistant.ComposeInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.composed = append(f.composed, in)
	if in.UserInput == "" {
		return "", assistant.ErrEmptyInput
	}
	return f.draft, f.err
}

func (f *fakeAssistant) Summarize(_ context.Context, req assistant.SummaryRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries = append(f.summaries, req)
	return f.summary, f.err
}

func (f *fakeAssistant) ExtractEvent(context.Context, string, *time.Location) (*assistant.CalendarEvent, error) {
	if f.eventErr != nil {
		return nil, f.eventErr
	}
	if f.event == nil {
		return &assistant.CalendarEvent{}, nil
	}
	return f.event, nil
}

func (f *fakeAssistant) Template() string { return "Hi,\n\nThanks,\n" }

var errBoom = errors.New("boom")

func newMessages() *fakeMessages {
	return &fakeMessages{
		messages: map[string]*gmail.Message{
			"m1": {ID: "m1", ThreadID: "t1", From: "Ana <ana@example.com>", Subject: "Lunch?", Body: "Lunch on Friday at noon?"},
		},
		latest: map[string]*gmail.Message{
			"t1": {ID: "m2", ThreadID: "t1", From: "Ana <ana@example.com>", Subject: "Re: Lunch?", Body: "Actually, Saturday."},
		},
	}
}

type fixture struct {
	messages  *fakeMessages
	calendar  *fakeCalendar
	collab    *fakeCollaborators
	assistant *fakeAssistant
	handlers  *Handlers
	router    *Router
}

func newFixture() *fixture {
	f := &fixture{
		messages:  newMessages(),
		calendar:  &fakeCalendar{},
		assistant: &fakeAssistant{reply: "Sounds good!", draft: "Dear team,", summary: "Lunch invite."},
	}
	f.collab = &fakeCollaborators{messages: f.messages, calendar: f.calendar}
	f.handlers = NewHandlers(HandlerOptions{
		URLs:            testURLs,
		Assistant:       f.assistant,
		Collaborators:   f.collab,
		EventExtraction: true,
	})
	f.router = NewRouter(RouterOptions{URLs: testURLs})
	f.handlers.Register(f.router)
	return f
}

func actionEvent(screen string, params ...string) *Event {
	p := map[string]string{}
	if screen != "" {
		p["screen"] = screen
	}
	for i := 0; i+1 < len(params); i += 2 {
		p[params[i]] = params[i+1]
	}
	return &Event{Common: CommonEventObject{HostApp: "GMAIL", Parameters: p}}
}
