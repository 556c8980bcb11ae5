package gmail

import (
	"encoding/base64"
	"strings"
	"time"
	"unicode"

	"golang.org/x/net/html"
	gmail "google.golang.org/api/gmail/v1"
)

// FromAPI converts an API message into a Message.
func FromAPI(m *gmail.Message) *Message {
	if m == nil {
		return nil
	}
	return &Message{
		ID:           m.Id,
		ThreadID:     m.ThreadId,
		Subject:      HeaderValue(m, "Subject"),
		From:         HeaderValue(m, "From"),
		To:           HeaderValue(m, "To"),
		Date:         HeaderValue(m, "Date"),
		MessageID:    HeaderValue(m, "Message-ID"),
		References:   HeaderValue(m, "References"),
		Body:         PlainBody(m),
		InternalDate: time.UnixMilli(m.InternalDate),
	}
}

// HeaderValue returns the first header named header, case-insensitively.
func HeaderValue(m *gmail.Message, header string) string {
	if m == nil || m.Payload == nil {
		return ""
	}
	for _, h := range m.Payload.Headers {
		if strings.EqualFold(h.Name, header) {
			return h.Value
		}
	}
	return ""
}

// PlainBody returns the first text/plain part, falling back to the text of
// the first text/html part.
func PlainBody(m *gmail.Message) string {
	if m == nil || m.Payload == nil {
		return ""
	}

	var plain, htmlBody string
	walkParts(m.Payload, func(part *gmail.MessagePart) {
		if part.Body == nil || part.Body.Data == "" {
			return
		}
		switch strings.ToLower(part.MimeType) {
		case "text/plain":
			if plain == "" {
				plain = decodeBody(part.Body.Data)
			}
		case "text/html":
			if htmlBody == "" {
				htmlBody = decodeBody(part.Body.Data)
			}
		}
	})

	if plain != "" {
		return normalizeNewlines(plain)
	}
	if htmlBody != "" {
		return htmlToText(htmlBody)
	}
	return ""
}

func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}
	fn(part)
	for _, sub := range part.Parts {
		walkParts(sub, fn)
	}
}

// decodeBody decodes base64url data, tolerating padding differences.
func decodeBody(data string) string {
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.RawURLEncoding, base64.StdEncoding} {
		if decoded, err := enc.DecodeString(data); err == nil {
			return string(decoded)
		}
	}
	return ""
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\r", "\n")
}

// htmlToText extracts readable text from an HTML body. Block elements end
// a line; script, style and head content is dropped.
func htmlToText(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var b strings.Builder
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text := strings.Join(strings.Fields(n.Data), " ")
			if text == "" {
				if n.Data != "" {
					b.WriteByte(' ')
				}
				return
			}
			if unicode.IsSpace(rune(n.Data[0])) {
				b.WriteByte(' ')
			}
			b.WriteString(text)
			if unicode.IsSpace(rune(n.Data[len(n.Data)-1])) {
				b.WriteByte(' ')
			}
			return
		case html.ElementNode:
			switch strings.ToLower(n.Data) {
			case "head", "style", "script", "title":
				return
			case "br":
				b.WriteByte('\n')
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "p", "div", "tr", "li", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote":
				b.WriteByte('\n')
			}
		}
	}
	visit(doc)

	lines := strings.Split(b.String(), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, ln := range lines {
		ln = strings.TrimSpace(ln)
		if ln == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, ln)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
