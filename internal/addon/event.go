package addon

import (
	"strings"
	"time"

	"google.golang.org/api/idtoken"

	"github.com/teemow/inboxdraft/internal/cards"
)

// Event is the event object the add-on host POSTs for every trigger and
// action.
type Event struct {
	Common        CommonEventObject        `json:"commonEventObject"`
	Authorization AuthorizationEventObject `json:"authorizationEventObject"`
	Gmail         *GmailEventObject        `json:"gmail,omitempty"`
}

// CommonEventObject holds the host-independent parts of an event.
type CommonEventObject struct {
	HostApp    string               `json:"hostApp,omitempty"`
	Platform   string               `json:"platform,omitempty"`
	FormInputs map[string]FormInput `json:"formInputs,omitempty"`
	Parameters map[string]string    `json:"parameters,omitempty"`
	TimeZone   *TimeZone            `json:"timeZone,omitempty"`
	UserLocale string               `json:"userLocale,omitempty"`
}

// FormInput is the value of one card input widget.
type FormInput struct {
	StringInputs *StringInputs `json:"stringInputs,omitempty"`
}

// StringInputs holds text input values.
type StringInputs struct {
	Value []string `json:"value"`
}

// TimeZone is the user's zone. Offset is in milliseconds from UTC.
type TimeZone struct {
	ID     string `json:"id"`
	Offset int    `json:"offset"`
}

// AuthorizationEventObject carries the tokens the host minted for this
// event.
type AuthorizationEventObject struct {
	UserOAuthToken string `json:"userOAuthToken,omitempty"`
	UserIDToken    string `json:"userIdToken,omitempty"`
	SystemIDToken  string `json:"systemIdToken,omitempty"`
}

// GmailEventObject identifies the open message.
type GmailEventObject struct {
	MessageID   string `json:"messageId,omitempty"`
	ThreadID    string `json:"threadId,omitempty"`
	AccessToken string `json:"accessToken,omitempty"`
}

// Param returns the action parameter key.
func (e *Event) Param(key string) string {
	return e.Common.Parameters[key]
}

// FormValue returns the first value of the form input field.
func (e *Event) FormValue(field string) string {
	in, ok := e.Common.FormInputs[field]
	if !ok || in.StringInputs == nil || len(in.StringInputs.Value) == 0 {
		return ""
	}
	return in.StringInputs.Value[0]
}

// Screen returns the screen the clicked button sits on.
func (e *Event) Screen() string {
	return e.Param(cards.ParamScreen)
}

// MessageID returns the messageId parameter, falling back to the open
// message.
func (e *Event) MessageID() string {
	if id := e.Param(cards.ParamMessageID); id != "" {
		return id
	}
	if e.Gmail != nil {
		return e.Gmail.MessageID
	}
	return ""
}

// ThreadID returns the thread of the open message, if known.
func (e *Event) ThreadID() string {
	if e.Gmail != nil {
		return e.Gmail.ThreadID
	}
	return ""
}

// AccessToken returns the per-message Gmail access token, if any.
func (e *Event) AccessToken() string {
	if e.Gmail != nil {
		return e.Gmail.AccessToken
	}
	return ""
}

// TimeZone returns the user's location. It falls back to a fixed zone
// built from the offset when the ID is unknown, and to UTC when the event
// carries no zone.
func (e *Event) TimeZone() *time.Location {
	tz := e.Common.TimeZone
	if tz == nil {
		return time.UTC
	}
	if tz.ID != "" {
		if loc, err := time.LoadLocation(tz.ID); err == nil {
			return loc
		}
	}
	if tz.Offset == 0 && tz.ID == "" {
		return time.UTC
	}
	return time.FixedZone(tz.ID, tz.Offset/1000)
}

// TimeZoneID returns the IANA name of the user's zone, or "".
func (e *Event) TimeZoneID() string {
	if e.Common.TimeZone == nil {
		return ""
	}
	return e.Common.TimeZone.ID
}

// Account identifies the user for per-user state. It is the subject of
// the user ID token, or "" when the event has none. The token signature is
// not checked here; the request itself is authenticated by the system ID
// token.
func (e *Event) Account() string {
	tok := strings.TrimSpace(e.Authorization.UserIDToken)
	if tok == "" {
		return ""
	}
	p, err := idtoken.ParsePayload(tok)
	if err != nil {
		return ""
	}
	if email, ok := p.Claims["email"].(string); ok && email != "" {
		return email
	}
	return p.Subject
}

// IsTrigger reports whether name is a trigger rather than a card action.
// Triggers answer with a bare action; card actions wrap it in renderActions.
func IsTrigger(name string) bool {
	return name == cards.ActionHomepage || name == cards.ActionOnGmailMessage
}
