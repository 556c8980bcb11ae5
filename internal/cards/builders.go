package cards

import (
	"html"
	"time"
	"unicode/utf8"
)

// ErrorIconURL is the Material error icon shown on the error card.
const ErrorIconURL = "https://www.gstatic.com/images/icons/material/system/1x/error_outline_black_48dp.png"

// PreviewRunes is the length of the message preview on the reply card.
const PreviewRunes = 150

// eventDisplayLayout formats event times on the reply card.
const eventDisplayLayout = "Mon, 02 Jan 2006 15:04 MST"

// MessageView is the message data shown on the reply card.
type MessageView struct {
	ID      string
	From    string
	Subject string
	Body    string
}

// EventView is a detected calendar event.
type EventView struct {
	Title string
	Start time.Time
	End   time.Time
}

// ComposeValues pre-fills or echoes the compose form.
type ComposeValues struct {
	Recipient string
	Subject   string
	UserInput string
}

func text(s string) Widget {
	return Widget{TextParagraph: &TextParagraph{Text: s}}
}

// userText escapes text from users or the model for a text paragraph.
func userText(s string) Widget {
	return text(html.EscapeString(s))
}

func row(label, value string) Widget {
	return Widget{DecoratedText: &DecoratedText{TopLabel: label, Text: html.EscapeString(value), WrapText: true}}
}

func buttons(bs ...Button) Widget {
	return Widget{ButtonList: &ButtonList{Buttons: bs}}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	var i, count int
	for i = range s {
		if count == n {
			break
		}
		count++
	}
	return s[:i]
}

// NoMessageCard is shown when the contextual trigger has no message.
func NoMessageCard() *Card {
	return &Card{
		Name:   "no-message",
		Header: &Header{Title: "No message selected"},
		Sections: []Section{{Widgets: []Widget{
			text("Open an email to use this add-on."),
		}}},
	}
}

// ComposeCard is the compose-mode input form.
func (u ActionURLs) ComposeCard(v ComposeValues) *Card {
	return &Card{
		Name:   ScreenCompose,
		Header: &Header{Title: "✉️ Email Draft Generator"},
		Sections: []Section{{Widgets: []Widget{
			{TextInput: &TextInput{
				Name:     FieldRecipient,
				Label:    "To (Recipient)",
				HintText: "e.g., john@example.com",
				Type:     SingleLine,
				Value:    v.Recipient,
			}},
			{TextInput: &TextInput{
				Name:     FieldSubject,
				Label:    "Subject",
				HintText: "Optional",
				Type:     SingleLine,
				Value:    v.Subject,
			}},
			text("<b>What do you want to say:</b>"),
			{TextInput: &TextInput{
				Name:     FieldUserInput,
				Label:    "Email Content",
				HintText: "e.g., Ask about project deadline, Thank them for meeting...",
				Type:     MultipleLine,
				Value:    v.UserInput,
			}},
			buttons(
				Button{Text: "Generate Draft", OnClick: u.action(ActionGenerateCompose, ScreenCompose)},
				Button{Text: "Insert template", OnClick: u.action(ActionInsertTemplateText, ScreenCompose)},
			),
		}}},
	}
}

// ReplyCard previews the open message. ev adds a detected event section
// when non-nil.
func (u ActionURLs) ReplyCard(msg MessageView, ev *EventView) *Card {
	preview := truncateRunes(msg.Body, PreviewRunes)
	card := &Card{
		Name:   ScreenReply,
		Header: &Header{Title: "📧 Email Reply Generator"},
		Sections: []Section{{Widgets: []Widget{
			row("From", msg.From),
			row("Subject", msg.Subject),
			text("<b>Preview:</b><br>" + html.EscapeString(preview) + "..."),
			text("<i>Choose an action below.</i>"),
			buttons(
				Button{Text: "✨ Generate AI Reply", OnClick: u.action(ActionGenerateReply, ScreenReply, ParamMessageID, msg.ID)},
				Button{Text: "📄 Summarize Email", OnClick: u.action(ActionSummarizeEmail, ScreenReply, ParamMessageID, msg.ID)},
			),
			buttons(
				Button{Text: "🔄 Refresh Latest", OnClick: u.action(ActionRefreshLatestReply, ScreenReply, ParamMessageID, msg.ID)},
			),
			buttons(
				Button{Text: "Compose Reply", OnClick: u.action(ActionCreateReplyDraft, ScreenReply, ParamMessageID, msg.ID)},
			),
		}}},
	}

	if ev != nil {
		card.Sections = append(card.Sections, Section{
			Header: "📅 Detected event",
			Widgets: []Widget{
				row("Title", ev.Title),
				row("Start", ev.Start.Format(eventDisplayLayout)),
				row("End", ev.End.Format(eventDisplayLayout)),
				buttons(Button{
					Text: "Add to Calendar",
					OnClick: u.action(ActionCreateCalendarEvent, ScreenReply,
						ParamTitle, ev.Title,
						ParamStart, ev.Start.Format(time.RFC3339),
						ParamEnd, ev.End.Format(time.RFC3339)),
				}),
			},
		})
	}
	return card
}

// GeneratedDraftCard shows a composed draft.
func (u ActionURLs) GeneratedDraftCard(draft string, in ComposeValues, regenerated bool) *Card {
	var widgets []Widget
	if in.Recipient != "" {
		widgets = append(widgets, row("To", in.Recipient))
	}
	if in.Subject != "" {
		widgets = append(widgets, row("Subject", in.Subject))
	}
	widgets = append(widgets,
		text("<b>AI Generated Draft:</b>"),
		userText(draft),
		buttons(
			Button{Text: "🔄 Regenerate", OnClick: u.action(ActionRegenerateCompose, ScreenDraft,
				FieldUserInput, in.UserInput,
				FieldRecipient, in.Recipient,
				FieldSubject, in.Subject)},
			Button{Text: "◀ Back", OnClick: u.action(ActionGoBackToCompose, ScreenDraft)},
		),
		buttons(
			Button{Text: "Insert into draft", OnClick: u.action(ActionInsertTemplateText, ScreenDraft, ParamText, draft)},
		),
	)

	title := "✨ Draft Generated"
	if regenerated {
		title = "✨ Draft Regenerated"
	}
	return &Card{
		Name:     ScreenDraft,
		Header:   &Header{Title: title},
		Sections: []Section{{Widgets: widgets}},
	}
}

// GeneratedReplyCard shows a drafted reply to messageID.
func (u ActionURLs) GeneratedReplyCard(reply, messageID string) *Card {
	return &Card{
		Name:   ScreenGeneratedReply,
		Header: &Header{Title: "✨ AI Reply Generated"},
		Sections: []Section{{Widgets: []Widget{
			text("<b>AI Generated Reply:</b>"),
			userText(reply),
			buttons(
				Button{Text: "🔄 Regenerate", OnClick: u.action(ActionGenerateReply, ScreenGeneratedReply, ParamMessageID, messageID)},
				Button{Text: "Compose Reply", OnClick: u.action(ActionCreateReplyDraft, ScreenGeneratedReply,
					ParamMessageID, messageID,
					ParamReply, reply)},
			),
		}}},
	}
}

// SummaryCard shows a message summary.
func (u ActionURLs) SummaryCard(summary, messageID string) *Card {
	return &Card{
		Name:   ScreenSummary,
		Header: &Header{Title: "Email Summary"},
		Sections: []Section{{Widgets: []Widget{
			userText(summary),
			buttons(Button{Text: "◀ Back", OnClick: u.action(ActionGoBack, ScreenSummary, ParamMessageID, messageID)}),
		}}},
	}
}

// ErrorCard reports a failed action.
func (u ActionURLs) ErrorCard(message string) *Card {
	return &Card{
		Name: ScreenError,
		Header: &Header{
			Title:     "❌ Something went wrong",
			ImageURL:  ErrorIconURL,
			ImageType: ImageCircle,
		},
		Sections: []Section{{Widgets: []Widget{
			userText("An error occurred: " + message),
			buttons(Button{Text: "◀ Back", OnClick: u.action(ActionGoBack, ScreenError)}),
		}}},
	}
}
