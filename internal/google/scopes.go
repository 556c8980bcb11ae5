package google

// OAuth scopes the add-on manifest requests. The host grants them to the
// user token it places in the event object.
const (
	ScopeAddonExecute        = "https://www.googleapis.com/auth/gmail.addons.execute"
	ScopeAddonCurrentMessage = "https://www.googleapis.com/auth/gmail.addons.current.message.readonly"
	ScopeAddonCurrentCompose = "https://www.googleapis.com/auth/gmail.addons.current.action.compose"
	ScopeGmailCompose        = "https://www.googleapis.com/auth/gmail.compose"
	ScopeGmailReadonly       = "https://www.googleapis.com/auth/gmail.readonly"
	ScopeCalendarEvents      = "https://www.googleapis.com/auth/calendar.events"
	ScopeUserInfoEmail       = "https://www.googleapis.com/auth/userinfo.email"

	// ScopeCloudPlatform authorises Vertex AI calls made with the
	// backend's own credentials.
	ScopeCloudPlatform = "https://www.googleapis.com/auth/cloud-platform"
)

// AddonScopes are the oauthScopes of the add-on manifest.
var AddonScopes = []string{
	ScopeAddonExecute,
	ScopeAddonCurrentMessage,
	ScopeAddonCurrentCompose,
	ScopeGmailCompose,
	ScopeGmailReadonly,
	ScopeCalendarEvents,
	ScopeUserInfoEmail,
}
