package addon

import (
	"context"
	"time"

	"github.com/teemow/inboxdraft/internal/assistant"
	"github.com/teemow/inboxdraft/internal/calendar"
	"github.com/teemow/inboxdraft/internal/gmail"
	"github.com/teemow/inboxdraft/internal/google"
	"github.com/teemow/inboxdraft/internal/instrumentation"
)

// MessageStore reads the open message and writes reply drafts.
type MessageStore interface {
	GetMessage(ctx context.Context, messageID string) (*gmail.Message, error)
	LatestInThread(ctx context.Context, threadID string) (*gmail.Message, error)
	CreateReplyDraft(ctx context.Context, orig *gmail.Message, body string) (*gmail.Draft, error)
}

// CalendarStore creates calendar events.
type CalendarStore interface {
	CreateEvent(ctx context.Context, calendarID string, input calendar.EventInput) (*calendar.Event, error)
}

// Collaborators builds the per-user stores for one event.
type Collaborators interface {
	Messages(ctx context.Context, ev *Event) (MessageStore, error)
	Calendar(ctx context.Context, ev *Event) (CalendarStore, error)
}

// Assistant runs the model tasks.
type Assistant interface {
	DraftReply(ctx context.Context, emailText string) (string, error)
	ComposeEmail(ctx context.Context, in assistant.ComposeInput) (string, error)
	Summarize(ctx context.Context, req assistant.SummaryRequest) (string, error)
	ExtractEvent(ctx context.Context, emailText string, loc *time.Location) (*assistant.CalendarEvent, error)
	Template() string
}

// GoogleCollaborators talks to the Gmail and Calendar APIs with the user
// OAuth token from the event.
type GoogleCollaborators struct {
	Metrics *instrumentation.Metrics

	// Endpoints override the API roots. Empty means the public APIs.
	GmailEndpoint    string
	CalendarEndpoint string
}

// Messages returns a Gmail client for the event's user and message.
func (g *GoogleCollaborators) Messages(ctx context.Context, ev *Event) (MessageStore, error) {
	ts, err := google.UserTokenSource(ev.Authorization.UserOAuthToken)
	if err != nil {
		return nil, err
	}

	opts := []gmail.Option{gmail.WithAccessToken(ev.AccessToken()), gmail.WithMetrics(g.Metrics)}
	if g.GmailEndpoint != "" {
		opts = append(opts, gmail.WithEndpoint(g.GmailEndpoint))
	}
	client, err := gmail.NewClient(ctx, google.NewHTTPClient(ts), opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Calendar returns a Calendar client for the event's user.
func (g *GoogleCollaborators) Calendar(ctx context.Context, ev *Event) (CalendarStore, error) {
	ts, err := google.UserTokenSource(ev.Authorization.UserOAuthToken)
	if err != nil {
		return nil, err
	}

	opts := []calendar.Option{calendar.WithMetrics(g.Metrics)}
	if g.CalendarEndpoint != "" {
		opts = append(opts, calendar.WithEndpoint(g.CalendarEndpoint))
	}
	client, err := calendar.NewClient(ctx, google.NewHTTPClient(ts), opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}
