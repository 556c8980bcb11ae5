package llm

import "strings"

// Roles used in Content.Role.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Schema types understood by the generateContent response schema.
const (
	TypeObject  = "OBJECT"
	TypeString  = "STRING"
	TypeBoolean = "BOOLEAN"
	TypeInteger = "INTEGER"
	TypeNumber  = "NUMBER"
	TypeArray   = "ARRAY"
)

// Request is the generateContent request body.
type Request struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`

	// Task labels the request in logs, spans and metrics. It is not sent.
	Task string `json:"-"`
}

// Content is one turn of a conversation.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part holds text. Only text parts are used by this module.
type Part struct {
	Text string `json:"text,omitempty"`
}

// GenerationConfig tunes sampling and output shape.
type GenerationConfig struct {
	Temperature      *float32 `json:"temperature,omitempty"`
	MaxOutputTokens  int32    `json:"maxOutputTokens,omitempty"`
	ResponseMIMEType string   `json:"responseMimeType,omitempty"`
	ResponseSchema   *Schema  `json:"responseSchema,omitempty"`
}

// Schema is the OpenAPI subset accepted as a response schema.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
}

// Response is the generateContent response body.
type Response struct {
	Candidates     []Candidate     `json:"candidates"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *UsageMetadata  `json:"usageMetadata,omitempty"`
}

// Candidate is one generated answer.
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

// PromptFeedback is set when the prompt itself was blocked.
type PromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

// UsageMetadata reports token counts.
type UsageMetadata struct {
	PromptTokenCount     int32 `json:"promptTokenCount,omitempty"`
	CandidatesTokenCount int32 `json:"candidatesTokenCount,omitempty"`
	TotalTokenCount      int32 `json:"totalTokenCount,omitempty"`
}

// Result is the validated outcome of one generation.
type Result struct {
	Text         string
	FinishReason string
	Usage        UsageMetadata
}

// UserText builds a single-turn request for prompt.
func UserText(prompt string) []Content {
	return []Content{{Role: RoleUser, Parts: []Part{{Text: prompt}}}}
}

// SystemText builds a system instruction, or nil when text is empty.
func SystemText(text string) *Content {
	if text == "" {
		return nil
	}
	return &Content{Parts: []Part{{Text: text}}}
}

// Float32 returns a pointer to v.
func Float32(v float32) *float32 { return &v }

// PromptText concatenates the text of every part of every content.
func (r *Request) PromptText() string {
	var b strings.Builder
	for _, c := range r.Contents {
		for _, p := range c.Parts {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// SystemInstructionText returns the joined system instruction text.
func (r *Request) SystemInstructionText() string {
	if r.SystemInstruction == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range r.SystemInstruction.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}
