// Package assistant_tools exposes the email assistant to MCP clients.
//
// The tools run the same prompts as the Gmail add-on, so an agent can draft
// and summarize mail it already has in hand:
//
//   - draft_reply - Draft a reply to an email
//   - compose_email - Write a new email from a short instruction
//   - summarize_email - Summarize an email, cached per account and message
//   - extract_event - Find a meeting or appointment in an email
//   - get_reply_template - Return the configured reply template
//
// Example usage:
//
//	summarize_email(
//	    email_text="Hi team, the offsite moves to Friday...",
//	    account="ada@example.com",
//	    message_id="18c2f0e9a1b2c3d4"
//	)
package assistant_tools
