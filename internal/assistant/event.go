package assistant

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/teemow/inboxdraft/internal/llm"
)

// DefaultEventDuration is used when the model gives a start but no end.
const DefaultEventDuration = time.Hour

// eventSchema is the response schema for event extraction.
var eventSchema = &llm.Schema{
	Type: llm.TypeObject,
	Properties: map[string]*llm.Schema{
		"hasCalendarEvent": {Type: llm.TypeBoolean},
		"title":            {Type: llm.TypeString},
		"start":            {Type: llm.TypeString},
		"end":              {Type: llm.TypeString},
	},
	Required: []string{"hasCalendarEvent"},
}

// rawEvent is the JSON shape the model answers with.
type rawEvent struct {
	HasCalendarEvent bool   `json:"hasCalendarEvent"`
	Title            string `json:"title"`
	Start            string `json:"start"`
	End              string `json:"end"`
}

// CalendarEvent is a validated extraction result. When Found is false the
// other fields are zero.
type CalendarEvent struct {
	Found bool
	Title string
	Start time.Time
	End   time.Time
}

// Local date-time layouts accepted when the model omits the offset.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseEventTime accepts RFC 3339 or a local date-time in loc.
func parseEventTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised time %q", ErrInvalidEvent, s)
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

// parseCalendarEvent decodes and validates the model's JSON answer.
func parseCalendarEvent(text string, loc *time.Location) (*CalendarEvent, error) {
	if loc == nil {
		loc = time.UTC
	}

	var raw rawEvent
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &raw); err != nil {
		return nil, fmt.Errorf("%w: response is not valid JSON: %v", ErrInvalidEvent, err)
	}
	if !raw.HasCalendarEvent {
		return &CalendarEvent{}, nil
	}

	title := strings.TrimSpace(raw.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: missing title", ErrInvalidEvent)
	}
	if strings.TrimSpace(raw.Start) == "" {
		return nil, fmt.Errorf("%w: missing start", ErrInvalidEvent)
	}
	start, err := parseEventTime(raw.Start, loc)
	if err != nil {
		return nil, err
	}

	end := start.Add(DefaultEventDuration)
	if strings.TrimSpace(raw.End) != "" {
		if end, err = parseEventTime(raw.End, loc); err != nil {
			return nil, err
		}
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s is before start %s", ErrInvalidEvent,
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	return &CalendarEvent{Found: true, Title: title, Start: start, End: end}, nil
}
