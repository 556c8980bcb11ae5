package calendar

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/inboxdraft/internal/instrumentation"
)

// PrimaryCalendar is the calendar ID of the user's main calendar.
const PrimaryCalendar = "primary"

// EventInput is the input for creating a calendar event.
type EventInput struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time

	// TimeZone is an IANA zone name. It defaults to the zone of Start when
	// that has a name, or UTC.
	TimeZone string
}

// Event is a created event.
type Event struct {
	ID       string
	Summary  string
	HTMLLink string
	Start    time.Time
	End      time.Time
}

// Client wraps the Google Calendar events service.
type Client struct {
	events  *calendar.EventsService
	metrics *instrumentation.Metrics
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	metrics    *instrumentation.Metrics
	apiOptions []option.ClientOption
}

// WithMetrics records every API call.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(o *clientOptions) { o.metrics = m }
}

// WithEndpoint points the client at a different API root.
func WithEndpoint(endpoint string) Option {
	return func(o *clientOptions) { o.apiOptions = append(o.apiOptions, option.WithEndpoint(endpoint)) }
}

// NewClient creates a Calendar client over an authorised HTTP client.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...Option) (*Client, error) {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	svc, err := calendar.NewService(ctx, append([]option.ClientOption{option.WithHTTPClient(httpClient)}, o.apiOptions...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return &Client{events: svc.Events, metrics: o.metrics}, nil
}

// Validate checks that input describes a timed event.
func (in EventInput) Validate() error {
	if strings.TrimSpace(in.Summary) == "" {
		return fmt.Errorf("summary is required")
	}
	if in.Start.IsZero() || in.End.IsZero() {
		return fmt.Errorf("start and end are required")
	}
	if in.End.Before(in.Start) {
		return fmt.Errorf("end %s is before start %s", in.End.Format(time.RFC3339), in.Start.Format(time.RFC3339))
	}
	return nil
}

func (in EventInput) timeZone() string {
	if in.TimeZone != "" {
		return in.TimeZone
	}
	loc := in.Start.Location()
	if loc == time.UTC || loc == time.Local || loc.String() == "" {
		return "UTC"
	}
	if _, err := time.LoadLocation(loc.String()); err != nil {
		return "UTC"
	}
	return loc.String()
}

// CreateEvent inserts an event into calendarID.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, input EventInput) (ev *Event, err error) {
	if calendarID == "" {
		calendarID = PrimaryCalendar
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationCreate)
	start := time.Now()
	defer func() {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
		}
		c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, instrumentation.OperationCreate, status, time.Since(start))
		instrumentation.EndSpan(span, err)
	}()

	tz := input.timeZone()
	event := &calendar.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Start:       &calendar.EventDateTime{DateTime: input.Start.Format(time.RFC3339), TimeZone: tz},
		End:         &calendar.EventDateTime{DateTime: input.End.Format(time.RFC3339), TimeZone: tz},
	}

	created, err := c.events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return toEvent(created), nil
}

func toEvent(e *calendar.Event) *Event {
	out := &Event{ID: e.Id, Summary: e.Summary, HTMLLink: e.HtmlLink}
	if e.Start != nil {
		out.Start, _ = time.Parse(time.RFC3339, e.Start.DateTime)
	}
	if e.End != nil {
		out.End, _ = time.Parse(time.RFC3339, e.End.DateTime)
	}
	return out
}
