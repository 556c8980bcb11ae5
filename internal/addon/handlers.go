package addon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teemow/inboxdraft/internal/assistant"
	"github.com/teemow/inboxdraft/internal/calendar"
	"github.com/teemow/inboxdraft/internal/cards"
	"github.com/teemow/inboxdraft/internal/gmail"
	"github.com/teemow/inboxdraft/internal/logging"
)

// ErrNoMessageID is returned by message actions without a message.
var ErrNoMessageID = errors.New("no message selected")

// Notification texts for the calendar action.
const (
	EventCreatedText      = "Event added to Google Calendar!"
	eventFailedTextPrefix = "Failed to create event: "
	draftFailedTextPrefix = "Failed to create draft: "
)

// HandlerOptions configures Handlers.
type HandlerOptions struct {
	URLs          cards.ActionURLs
	Assistant     Assistant
	Collaborators Collaborators

	// EventExtraction adds the detected event section to the reply card.
	EventExtraction bool

	Logger *slog.Logger
}

// Handlers implements every trigger and action of the add-on.
type Handlers struct {
	urls            cards.ActionURLs
	assistant       Assistant
	collab          Collaborators
	eventExtraction bool
	logger          *slog.Logger
}

// NewHandlers creates Handlers.
func NewHandlers(opts HandlerOptions) *Handlers {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handlers{
		urls:            opts.URLs,
		assistant:       opts.Assistant,
		collab:          opts.Collaborators,
		eventExtraction: opts.EventExtraction,
		logger:          opts.Logger,
	}
}

// Register installs every handler on r.
func (h *Handlers) Register(r *Router) {
	r.Register(cards.ActionHomepage, h.Homepage)
	r.Register(cards.ActionOnGmailMessage, h.OnGmailMessage)
	r.Register(cards.ActionGenerateReply, h.GenerateReply)
	r.Register(cards.ActionSummarizeEmail, h.SummarizeEmail)
	r.Register(cards.ActionRefreshLatestReply, h.RefreshLatestReply)
	r.Register(cards.ActionCreateReplyDraft, h.CreateReplyDraft)
	r.Register(cards.ActionGenerateCompose, h.GenerateCompose)
	r.Register(cards.ActionRegenerateCompose, h.RegenerateCompose)
	r.Register(cards.ActionGoBackToCompose, h.GoBack)
	r.Register(cards.ActionGoBack, h.GoBack)
	r.Register(cards.ActionInsertTemplateText, h.InsertTemplateText)
	r.Register(cards.ActionCreateCalendarEvent, h.CreateCalendarEvent)
}

// Homepage shows the compose form.
func (h *Handlers) Homepage(_ context.Context, _ *Event) (*cards.RenderActions, error) {
	return cards.Homepage(h.urls.ComposeCard(cards.ComposeValues{})), nil
}

// OnGmailMessage previews the open message.
func (h *Handlers) OnGmailMessage(ctx context.Context, ev *Event) (*cards.RenderActions, error) {
	id := ev.MessageID()
	if id == "" {
		return cards.Homepage(cards.NoMessageCard()), nil
	}

	store, err := h.collab.Messages(ctx, ev)
	if err != nil {
		return nil, err
	}
	msg, err := store.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	return cards.Homepage(h.replyCard(ctx, ev, msg)), nil
}

// replyCard builds the reply card, adding the detected event when
// extraction is enabled. Extraction failures only drop the section.
func (h *Handlers) replyCard(ctx context.Context, ev *Event, msg *gmail.Message) *cards.Card {
	view := cards.MessageView{ID: msg.ID, From: msg.From, Subject: msg.Subject, Body: msg.Body}
	if !h.eventExtraction || strings.TrimSpace(msg.Body) == "" {
		return h.urls.ReplyCard(view, nil)
	}

	found, err := h.assistant.ExtractEvent(ctx, msg.Body, ev.TimeZone())
	if err != nil {
		logging.FromContext(ctx, h.logger).Info("event extraction skipped",
			logging.MessageID(msg.ID), logging.Err(err))
		return h.urls.ReplyCard(view, nil)
	}
	if found == nil || !found.Found {
		return h.urls.ReplyCard(view, nil)
	}
	return h.urls.ReplyCard(view, &cards.EventView{Title: found.Title, Start: found.Start, End: found.End})
}

func (h *Handlers) message(ctx context.Context, ev *Event) (MessageStore, *gmail.Message, error) {
	id := ev.MessageID()
	if id == "" {
		return nil, nil, ErrNoMessageID
	}
	store, err := h.collab.Messages(ctx, ev)
	if err != nil {
		return nil, nil, err
	}
	msg, err := store.GetMessage(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return store, msg, nil
}

// GenerateReply drafts a reply to the message and shows it.
func (h *Handlers) GenerateReply(ctx context.Context, ev *Event) (*cards.RenderActions, error) {
	_, msg, err := h.message(ctx, ev)
	if err != nil {
		return nil, err
	}
	reply, err := h.assistant.DraftReply(ctx, msg.Body)
	if err != nil {
		return nil, err
	}
	return render(ctx, h.urls.GeneratedReplyCard(reply, msg.ID)), nil
}

// SummarizeEmail shows a summary of the message.
func (h *Handlers) SummarizeEmail(ctx context.Context, ev *Event) (*cards.RenderActions, error) {
	_, msg, err := h.message(ctx, ev)
	if err != nil {
		return nil, err
	}
	summary, err := h.assistant.Summarize(ctx, assistant.SummaryRequest{
		Account:   ev.Account(),
		MessageID: msg.ID,
		Text:      msg.Body,
	})
	if err != nil {
		return nil, err
	}
	return render(ctx, h.urls.SummaryCard(summary, msg.ID)), nil
}

// RefreshLatestReply replaces the reply card with the newest message of
// the thread.
func (h *Handlers) RefreshLatestReply(ctx context.Context, ev *Event) (*cards.RenderActions, error) {
	store, err := h.collab.Messages(ctx, ev)
	if err != nil {
		return nil, err
	}

	threadID := ev.ThreadID()
	if threadID == "" {
		id := ev.MessageID()
		if id == "" {
			return nil, ErrNoMessageID
		}
		msg, err := store.GetMessage(ctx, id)
		if err != nil {
			return nil, err
		}
		threadID = msg.ThreadID
	}

	latest, err := store.LatestInThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return render(ctx, h.replyCard(ctx, ev, latest)), nil
}

// CreateReplyDraft opens a reply draft in the thread. The reply text comes
// from the card, or is generated when the card has none. Failures are
// shown as a notification.
func (h *Handlers) CreateReplyDraft(ctx context.Context, ev *Event) (*cards.RenderActions, error) {
	draft, err := h.createReplyDraft(ctx, ev)
	if err != nil {
		logging.FromContext(ctx, h.logger).Warn("reply draft failed", logging.Err(err))
		return cards.Notify(draftFailedTextPrefix + userMessage(err)), nil
	}
	return cards.OpenDraft(draft.ID, draft.ThreadID), nil
}

func (h *Handlers) createReplyDraft(ctx context.Context, ev *Event) (*gmail.Draft, error) {
	store, msg, err := h.message(ctx, ev)
	if err != nil {
		return nil, err
	}
	reply := ev.Param(cards.ParamReply)
	if strings.TrimSpace(reply) == "" {
		if reply, err = h.assistant.DraftReply(ctx, msg.Body); err != nil {
			return nil, err
		}
	}
	return store.CreateReplyDraft(ctx, msg, reply)
}

// GenerateCompose drafts an email from the compose form.
func (h *Handlers) GenerateCompose(ctx context.Context, ev *Event) (*cards.RenderActions, error) {
	return h.compose(ctx, cards.ComposeValues{
		Recipient: ev.FormValue(cards.FieldRecipient),
		Subject:   ev.FormValue(cards.FieldSubject),
		UserInput: ev.FormValue(cards.FieldUserInput),
	}, false)
}

// RegenerateCompose drafts again from the values carried by the button.
func (h *Handlers) RegenerateCompose(ctx context.Context, ev *Event) (*cards.RenderActions, error) {
	return h.compose(ctx, cards.ComposeValues{
		Recipient: ev.Param(cards.FieldRecipient),
		Subject:   ev.Param(cards.FieldSubject),
		UserInput: ev.Param(cards.FieldUserInput),
	}, true)
}

func (h *Handlers) compose(ctx context.Context, in cards.ComposeValues, regenerated bool) (*cards.RenderActions, error) {
	draft, err := h.assistant.ComposeEmail(ctx, assistant.ComposeInput{
		UserInput: in.UserInput,
		Recipient: in.Recipient,
		Subject:   in.Subject,
	})
	if err != nil {
		return nil, err
	}
	return render(ctx, h.urls.GeneratedDraftCard(draft, in, regenerated)), nil
}

// GoBack pops the top card.
func (h *Handlers) GoBack(context.Context, *Event) (*cards.RenderActions, error) {
	return cards.Pop(), nil
}

// InsertTemplateText inserts the text parameter, or the default template,
// at the cursor of the open draft.
func (h *Handlers) InsertTemplateText(_ context.Context, ev *Event) (*cards.RenderActions, error) {
	text := ev.Param(cards.ParamText)
	if text == "" {
		text = h.assistant.Template()
	}
	return cards.InsertIntoDraft(text), nil
}

// CreateCalendarEvent adds the detected event to the primary calendar and
// reports the outcome as a notification.
func (h *Handlers) CreateCalendarEvent(ctx context.Context, ev *Event) (*cards.RenderActions, error) {
	created, err := h.createCalendarEvent(ctx, ev)
	if err != nil {
		logging.FromContext(ctx, h.logger).Warn("calendar event failed", logging.Err(err))
		return cards.Notify(eventFailedTextPrefix + userMessage(err)), nil
	}
	logging.FromContext(ctx, h.logger).Info("calendar event created", slog.String("event_id", created.ID))
	return cards.Notify(EventCreatedText), nil
}

func (h *Handlers) createCalendarEvent(ctx context.Context, ev *Event) (*calendar.Event, error) {
	start, err := time.Parse(time.RFC3339, ev.Param(cards.ParamStart))
	if err != nil {
		return nil, fmt.Errorf("invalid start time %q", ev.Param(cards.ParamStart))
	}
	end, err := time.Parse(time.RFC3339, ev.Param(cards.ParamEnd))
	if err != nil {
		return nil, fmt.Errorf("invalid end time %q", ev.Param(cards.ParamEnd))
	}

	store, err := h.collab.Calendar(ctx, ev)
	if err != nil {
		return nil, err
	}
	return store.CreateEvent(ctx, calendar.PrimaryCalendar, calendar.EventInput{
		Summary:  ev.Param(cards.ParamTitle),
		Start:    start,
		End:      end,
		TimeZone: ev.TimeZoneID(),
	})
}
