// Package addon serves the Gmail add-on over the Workspace HTTP runtime.
//
// The host POSTs an event object to /actions/{name} for every trigger and
// card action. A Router decodes the event, checks the action against the
// card Flow, runs the Handlers and encodes the card response. Triggers
// (homepage, onGmailMessage) answer with a bare action; card actions wrap
// it in renderActions. Handler failures never surface as HTTP errors: they
// become the error card or, for draft and calendar actions, a notification.
//
// Middleware adds request IDs, per-client rate limiting, system ID token
// verification and HTTP telemetry.
package addon
