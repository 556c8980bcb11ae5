package cards

import "strings"

// Action names. Each is served at <base>/actions/<name>.
const (
	ActionHomepage            = "homepage"
	ActionOnGmailMessage      = "onGmailMessage"
	ActionGenerateReply       = "generateReply"
	ActionSummarizeEmail      = "handleSummarizeEmail"
	ActionRefreshLatestReply  = "refreshLatestReply"
	ActionCreateReplyDraft    = "createReplyDraft"
	ActionGenerateCompose     = "generateCompose"
	ActionRegenerateCompose   = "regenerateCompose"
	ActionGoBackToCompose     = "goBackToCompose"
	ActionGoBack              = "goBack"
	ActionInsertTemplateText  = "insertTemplateText"
	ActionCreateCalendarEvent = "createCalendarEvent"
)

// Screens name the card a button sits on.
const (
	ScreenCompose        = "compose"
	ScreenDraft          = "draft"
	ScreenReply          = "reply"
	ScreenGeneratedReply = "generatedReply"
	ScreenSummary        = "summary"
	ScreenError          = "error"
)

// Parameter and form field names.
const (
	ParamScreen    = "screen"
	ParamMessageID = "messageId"
	ParamReply     = "reply"
	ParamText      = "text"
	ParamTitle     = "title"
	ParamStart     = "start"
	ParamEnd       = "end"

	FieldRecipient = "recipient"
	FieldSubject   = "subject"
	FieldUserInput = "userInput"
)

// ActionURLs resolves action names to absolute callback URLs.
type ActionURLs struct {
	Base string
}

// For returns the URL of the named action.
func (u ActionURLs) For(name string) string {
	return strings.TrimRight(u.Base, "/") + "/actions/" + name
}

// action builds a callback for name on screen. params alternate key, value.
func (u ActionURLs) action(name, screen string, params ...string) OnClick {
	a := &Action{
		Function:      u.For(name),
		LoadIndicator: LoadSpinner,
		Parameters:    []ActionParameter{{Key: ParamScreen, Value: screen}},
	}
	for i := 0; i+1 < len(params); i += 2 {
		a.Parameters = append(a.Parameters, ActionParameter{Key: params[i], Value: params[i+1]})
	}
	return OnClick{Action: a}
}
