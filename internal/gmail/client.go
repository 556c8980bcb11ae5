package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/inboxdraft/internal/instrumentation"
)

// AccessTokenHeader carries the per-message access token the add-on host
// issues for the open message.
const AccessTokenHeader = "X-Goog-Gmail-Access-Token"

// ErrNoMessage is returned when a message or thread has no usable content.
var ErrNoMessage = errors.New("message not found")

// Message is the subset of a Gmail message used by the add-on.
type Message struct {
	ID       string
	ThreadID string

	Subject    string
	From       string
	To         string
	Date       string
	MessageID  string // RFC 2822 Message-ID header
	References string

	// Body is the plain text body, or the text of the HTML body when the
	// message has no plain part.
	Body string

	InternalDate time.Time
}

// Draft identifies a created draft.
type Draft struct {
	ID       string
	ThreadID string
}

// Client wraps the Gmail Users service for one user and one add-on event.
type Client struct {
	svc         *gmail.UsersService
	accessToken string
	metrics     *instrumentation.Metrics
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	accessToken string
	metrics     *instrumentation.Metrics
	apiOptions  []option.ClientOption
}

// WithAccessToken sets the per-message access token from the event.
func WithAccessToken(token string) Option {
	return func(o *clientOptions) { o.accessToken = token }
}

// WithMetrics records every API call.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(o *clientOptions) { o.metrics = m }
}

// WithEndpoint points the client at a different API root.
func WithEndpoint(endpoint string) Option {
	return func(o *clientOptions) { o.apiOptions = append(o.apiOptions, option.WithEndpoint(endpoint)) }
}

// NewClient creates a Gmail client over an authorised HTTP client.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...Option) (*Client, error) {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	svc, err := gmail.NewService(ctx, append([]option.ClientOption{option.WithHTTPClient(httpClient)}, o.apiOptions...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &Client{svc: svc.Users, accessToken: o.accessToken, metrics: o.metrics}, nil
}

type headerSetter interface {
	Header() http.Header
}

func (c *Client) authorize(call headerSetter) {
	if c.accessToken != "" {
		call.Header().Set(AccessTokenHeader, c.accessToken)
	}
}

func (c *Client) observe(ctx context.Context, operation string, start time.Time, err error) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail, operation, status, time.Since(start))
}

// GetMessage fetches and decodes one message.
func (c *Client) GetMessage(ctx context.Context, messageID string) (msg *Message, err error) {
	if messageID == "" {
		return nil, fmt.Errorf("messageID is required")
	}

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, instrumentation.OperationGet)
	start := time.Now()
	defer func() {
		c.observe(ctx, instrumentation.OperationGet, start, err)
		instrumentation.EndSpan(span, err)
	}()

	call := c.svc.Messages.Get("me", messageID).Format("full").Context(ctx)
	c.authorize(call)
	raw, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	return FromAPI(raw), nil
}

// LatestInThread returns the newest message of a thread.
func (c *Client) LatestInThread(ctx context.Context, threadID string) (msg *Message, err error) {
	if threadID == "" {
		return nil, fmt.Errorf("threadID is required")
	}

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, instrumentation.OperationGetThread)
	start := time.Now()
	defer func() {
		c.observe(ctx, instrumentation.OperationGetThread, start, err)
		instrumentation.EndSpan(span, err)
	}()

	call := c.svc.Threads.Get("me", threadID).Format("full").Context(ctx)
	c.authorize(call)
	thread, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get thread %s: %w", threadID, err)
	}

	var latest *gmail.Message
	for _, m := range thread.Messages {
		if latest == nil || m.InternalDate >= latest.InternalDate {
			latest = m
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("thread %s: %w", threadID, ErrNoMessage)
	}
	return FromAPI(latest), nil
}

// CreateReplyDraft creates a draft replying to orig in its thread.
func (c *Client) CreateReplyDraft(ctx context.Context, orig *Message, body string) (draft *Draft, err error) {
	raw, err := BuildReply(orig, body)
	if err != nil {
		return nil, err
	}

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, instrumentation.OperationCreateDraft)
	start := time.Now()
	defer func() {
		c.observe(ctx, instrumentation.OperationCreateDraft, start, err)
		instrumentation.EndSpan(span, err)
	}()

	call := c.svc.Drafts.Create("me", &gmail.Draft{
		Message: &gmail.Message{
			Raw:      base64.URLEncoding.EncodeToString(raw),
			ThreadId: orig.ThreadID,
		},
	}).Context(ctx)
	c.authorize(call)
	created, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create draft: %w", err)
	}

	d := &Draft{ID: created.Id, ThreadID: orig.ThreadID}
	if created.Message != nil && created.Message.ThreadId != "" {
		d.ThreadID = created.Message.ThreadId
	}
	return d, nil
}

// BuildReply renders an RFC 2822 plain-text reply to orig.
func BuildReply(orig *Message, body string) ([]byte, error) {
	if orig == nil {
		return nil, fmt.Errorf("original message is required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("body is required")
	}
	if orig.From == "" {
		return nil, fmt.Errorf("original message has no From header")
	}

	subject := orig.Subject
	if !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}

	references := orig.MessageID
	if orig.References != "" {
		references = strings.TrimSpace(orig.References + " " + orig.MessageID)
	}

	var b strings.Builder
	b.WriteString("To: " + orig.From + "\r\n")
	b.WriteString("Subject: " + encodeRFC2047(subject) + "\r\n")
	if orig.MessageID != "" {
		b.WriteString("In-Reply-To: " + orig.MessageID + "\r\n")
	}
	if references != "" {
		b.WriteString("References: " + references + "\r\n")
	}
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)

	return []byte(b.String()), nil
}

// encodeRFC2047 encodes non-ASCII header values.
func encodeRFC2047(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.BEncoding.Encode("UTF-8", s)
		}
	}
	return s
}
