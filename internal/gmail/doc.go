// Package gmail reads the message open in the add-on and creates reply
// drafts in its thread.
//
// A Client is built per add-on event over an HTTP client carrying the
// user's OAuth token. When the event carries a per-message access token,
// every call also sends it in the X-Goog-Gmail-Access-Token header so the
// add-on's gmail.addons.current.message scopes apply.
//
// Example usage:
//
//	client, err := gmail.NewClient(ctx, httpClient, gmail.WithAccessToken(ev.Gmail.AccessToken))
//	if err != nil {
//	    return err
//	}
//	msg, err := client.GetMessage(ctx, ev.Gmail.MessageID)
//	if err != nil {
//	    return err
//	}
//	draft, err := client.CreateReplyDraft(ctx, msg, "Thanks, see you then.")
package gmail
