// Package assistant implements the email tasks: drafting a reply, composing
// a new email, summarizing a message and extracting a calendar event.
//
// Prompts come from an embedded YAML pack that a file can override.
// Summaries go through an optional SummaryCache.
package assistant
