// Package llm talks to hosted generative models.
//
// Requests and responses use the generateContent envelope of Vertex AI
// Gemini. Three backends implement it: VertexClient (REST, the default),
// GenAIClient (google.golang.org/genai, Gemini API or Vertex) and
// BedrockClient (Anthropic models on Amazon Bedrock).
//
// Client wraps a backend with a per-call timeout, a retry policy for
// transient failures (408, 429, 5xx and transport errors, honouring
// Retry-After), a client span and request metrics.
package llm
