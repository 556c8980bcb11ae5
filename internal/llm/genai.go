package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// GenAIClient generates content through the google.golang.org/genai SDK,
// either against the Gemini API (API key) or Vertex AI (project/location).
type GenAIClient struct {
	Model string

	client *genai.Client
}

// GenAIConfig selects the SDK backend. APIKey wins over Project.
type GenAIConfig struct {
	APIKey     string
	Project    string
	Location   string
	Model      string
	HTTPClient *http.Client
}

// NewGenAIClient creates the SDK client.
func NewGenAIClient(ctx context.Context, cfg GenAIConfig) (*GenAIClient, error) {
	if cfg.Model == "" {
		return nil, errors.New("genai model is required")
	}

	cc := &genai.ClientConfig{HTTPClient: cfg.HTTPClient}
	switch {
	case cfg.APIKey != "":
		cc.APIKey = cfg.APIKey
		cc.Backend = genai.BackendGeminiAPI
	case cfg.Project != "":
		cc.Project = cfg.Project
		cc.Location = cfg.Location
		cc.Backend = genai.BackendVertexAI
	default:
		return nil, errors.New("genai requires an API key or a project")
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GenAIClient{Model: cfg.Model, client: client}, nil
}

// Name returns the backend name.
func (g *GenAIClient) Name() string { return "genai" }

// ModelName returns the configured model id.
func (g *GenAIClient) ModelName() string { return g.Model }

// Generate performs one GenerateContent call.
func (g *GenAIClient) Generate(ctx context.Context, req *Request) (*Result, error) {
	contents := make([]*genai.Content, 0, len(req.Contents))
	for _, c := range req.Contents {
		contents = append(contents, toGenAIContent(c))
	}

	config := &genai.GenerateContentConfig{}
	if req.SystemInstruction != nil {
		config.SystemInstruction = toGenAIContent(*req.SystemInstruction)
	}
	if gc := req.GenerationConfig; gc != nil {
		config.Temperature = gc.Temperature
		config.MaxOutputTokens = gc.MaxOutputTokens
		config.ResponseMIMEType = gc.ResponseMIMEType
		config.ResponseSchema = toGenAISchema(gc.ResponseSchema)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.Model, contents, config)
	if err != nil {
		return nil, fromGenAIError(err)
	}
	return Validate(fromGenAIResponse(resp))
}

func toGenAIContent(c Content) *genai.Content {
	parts := make([]*genai.Part, 0, len(c.Parts))
	for _, p := range c.Parts {
		parts = append(parts, genai.NewPartFromText(p.Text))
	}
	return &genai.Content{Role: c.Role, Parts: parts}
}

func toGenAISchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        genai.Type(s.Type),
		Description: s.Description,
		Required:    s.Required,
		Items:       toGenAISchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = toGenAISchema(v)
		}
	}
	return out
}

func fromGenAIResponse(resp *genai.GenerateContentResponse) *Response {
	if resp == nil {
		return nil
	}
	out := &Response{}
	for _, c := range resp.Candidates {
		cand := Candidate{FinishReason: string(c.FinishReason)}
		if c.Content != nil {
			for _, p := range c.Content.Parts {
				if p != nil && p.Text != "" && !p.Thought {
					cand.Content.Parts = append(cand.Content.Parts, Part{Text: p.Text})
				}
			}
		}
		out.Candidates = append(out.Candidates, cand)
	}
	if resp.PromptFeedback != nil {
		out.PromptFeedback = &PromptFeedback{BlockReason: string(resp.PromptFeedback.BlockReason)}
	}
	if u := resp.UsageMetadata; u != nil {
		out.UsageMetadata = &UsageMetadata{
			PromptTokenCount:     u.PromptTokenCount,
			CandidatesTokenCount: u.CandidatesTokenCount,
			TotalTokenCount:      u.TotalTokenCount,
		}
	}
	return out
}

// fromGenAIError maps SDK API errors onto *APIError so the retry policy
// treats every backend alike.
func fromGenAIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Service: "Gemini", StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &APIError{Service: "Gemini", StatusCode: apiErrPtr.Code, Body: apiErrPtr.Message}
	}
	return err
}
