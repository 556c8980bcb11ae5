// Package google provides the OAuth2 token sources and HTTP clients used to
// call Google APIs.
//
// Per-user calls (Gmail, Calendar) use the user OAuth token the add-on host
// places in each event object. Calls made on behalf of the backend itself,
// such as Vertex AI generation, use Application Default Credentials.
package google
