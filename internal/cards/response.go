package cards

func navigate(nav Navigation) *RenderActions {
	return &RenderActions{Action: &ResponseAction{Navigations: []Navigation{nav}}}
}

// Homepage renders the first card of a trigger.
func Homepage(card *Card) *RenderActions { return Push(card) }

// Push pushes card onto the stack.
func Push(card *Card) *RenderActions { return navigate(Navigation{PushCard: card}) }

// Update replaces the top card.
func Update(card *Card) *RenderActions { return navigate(Navigation{UpdateCard: card}) }

// Pop removes the top card.
func Pop() *RenderActions { return navigate(Navigation{PopCard: true}) }

// PopToRoot returns to the first card.
func PopToRoot() *RenderActions { return navigate(Navigation{PopToRoot: true}) }

// Notify shows a notification without changing the card stack.
func Notify(text string) *RenderActions {
	return &RenderActions{Action: &ResponseAction{Notification: &Notification{Text: text}}}
}

// OpenDraft opens a draft created by the add-on.
func OpenDraft(draftID, threadID string) *RenderActions {
	return &RenderActions{HostAppAction: &HostAppAction{GmailAction: &GmailAction{
		OpenCreatedDraftAction: &OpenCreatedDraftAction{DraftID: draftID, DraftThreadID: threadID},
	}}}
}

// InsertIntoDraft inserts plain text at the cursor of the open draft.
func InsertIntoDraft(text string) *RenderActions {
	return &RenderActions{HostAppAction: &HostAppAction{GmailAction: &GmailAction{
		UpdateDraftAction: &UpdateDraftAction{UpdateBody: &UpdateDraftBodyAction{
			InsertContents: []InsertContent{{Content: text, ContentType: ContentText}},
			Type:           InPlaceInsert,
		}},
	}}}
}

// Param returns the value of the action parameter key.
func (b Button) Param(key string) (string, bool) {
	if b.OnClick.Action == nil {
		return "", false
	}
	for _, p := range b.OnClick.Action.Parameters {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Buttons returns every button on the card in order.
func (c *Card) Buttons() []Button {
	var out []Button
	for _, s := range c.Sections {
		for _, w := range s.Widgets {
			if w.ButtonList != nil {
				out = append(out, w.ButtonList.Buttons...)
			}
		}
	}
	return out
}

// Button returns the first button labelled text.
func (c *Card) Button(text string) (Button, bool) {
	for _, b := range c.Buttons() {
		if b.Text == text {
			return b, true
		}
	}
	return Button{}, false
}
