package cards

// Card is a Cards v2 card.
type Card struct {
	Name     string    `json:"name,omitempty"`
	Header   *Header   `json:"header,omitempty"`
	Sections []Section `json:"sections"`
}

// Header image types.
const (
	ImageSquare = "SQUARE"
	ImageCircle = "CIRCLE"
)

// Header is the card title block.
type Header struct {
	Title     string `json:"title"`
	Subtitle  string `json:"subtitle,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
	ImageType string `json:"imageType,omitempty"`
}

// Section groups widgets.
type Section struct {
	Header  string   `json:"header,omitempty"`
	Widgets []Widget `json:"widgets"`
}

// Widget holds exactly one of its fields.
type Widget struct {
	TextParagraph *TextParagraph `json:"textParagraph,omitempty"`
	DecoratedText *DecoratedText `json:"decoratedText,omitempty"`
	TextInput     *TextInput     `json:"textInput,omitempty"`
	ButtonList    *ButtonList    `json:"buttonList,omitempty"`
}

// TextParagraph is formatted text. It accepts a small HTML subset.
type TextParagraph struct {
	Text string `json:"text"`
}

// DecoratedText is a label/value row.
type DecoratedText struct {
	TopLabel string `json:"topLabel,omitempty"`
	Text     string `json:"text"`
	WrapText bool   `json:"wrapText,omitempty"`
}

// Text input types.
const (
	SingleLine   = "SINGLE_LINE"
	MultipleLine = "MULTIPLE_LINE"
)

// TextInput is a form field. Its value arrives in formInputs under Name.
type TextInput struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	HintText string `json:"hintText,omitempty"`
	Type     string `json:"type,omitempty"`
	Value    string `json:"value,omitempty"`
}

// ButtonList is a row of buttons.
type ButtonList struct {
	Buttons []Button `json:"buttons"`
}

// Button is a text button.
type Button struct {
	Text    string  `json:"text"`
	OnClick OnClick `json:"onClick"`
}

// OnClick holds exactly one of its fields.
type OnClick struct {
	Action                *Action `json:"action,omitempty"`
	OpenDynamicLinkAction *Action `json:"openDynamicLinkAction,omitempty"`
}

// Load indicators.
const (
	LoadSpinner = "SPINNER"
	LoadNone    = "NONE"
)

// Action calls back into the add-on. Function is the action URL.
type Action struct {
	Function      string            `json:"function"`
	Parameters    []ActionParameter `json:"parameters,omitempty"`
	LoadIndicator string            `json:"loadIndicator,omitempty"`
}

// ActionParameter is a string key/value pair round-tripped by the host.
type ActionParameter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RenderActions is the add-on response to an event.
type RenderActions struct {
	Action        *ResponseAction `json:"action,omitempty"`
	HostAppAction *HostAppAction  `json:"hostAppAction,omitempty"`
}

// ResponseAction changes the card stack or shows a notification.
type ResponseAction struct {
	Navigations  []Navigation  `json:"navigations,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
}

// Navigation holds exactly one operation.
type Navigation struct {
	PushCard   *Card `json:"pushCard,omitempty"`
	UpdateCard *Card `json:"updateCard,omitempty"`
	PopCard    bool  `json:"popCard,omitempty"`
	PopToRoot  bool  `json:"popToRoot,omitempty"`
}

// Notification is a toast shown by the host.
type Notification struct {
	Text string `json:"text"`
}

// HostAppAction is an action performed by the host application.
type HostAppAction struct {
	GmailAction *GmailAction `json:"gmailAction,omitempty"`
}

// GmailAction holds exactly one Gmail host action.
type GmailAction struct {
	OpenCreatedDraftAction *OpenCreatedDraftAction `json:"openCreatedDraftActionMarkup,omitempty"`
	UpdateDraftAction      *UpdateDraftAction      `json:"updateDraftActionMarkup,omitempty"`
}

// OpenCreatedDraftAction opens a draft the add-on created.
type OpenCreatedDraftAction struct {
	DraftID       string `json:"draftId"`
	DraftThreadID string `json:"draftThreadId,omitempty"`
}

// UpdateDraftAction edits the draft currently open in the compose window.
type UpdateDraftAction struct {
	UpdateBody *UpdateDraftBodyAction `json:"updateBody,omitempty"`
}

// Draft body update types.
const (
	InPlaceInsert = "IN_PLACE_INSERT"
	InsertAtStart = "INSERT_AT_START"
	InsertAtEnd   = "INSERT_AT_END"
)

// UpdateDraftBodyAction inserts content into the draft body.
type UpdateDraftBodyAction struct {
	InsertContents []InsertContent `json:"insertContents"`
	Type           string          `json:"type"`
}

// Content types for InsertContent.
const (
	ContentText        = "TEXT"
	ContentMutableHTML = "MUTABLE_HTML"
)

// InsertContent is one piece of inserted content.
type InsertContent struct {
	Content     string `json:"content"`
	ContentType string `json:"contentType"`
}

// Envelope wraps RenderActions for action (non-trigger) responses.
type Envelope struct {
	RenderActions *RenderActions `json:"renderActions"`
}
