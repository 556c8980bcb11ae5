package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const bedrockAnthropicVersion = "bedrock-2023-05-31"

// bedrockInvoker is the subset of the bedrockruntime client used here.
type bedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient generates content with Anthropic models on Amazon Bedrock.
type BedrockClient struct {
	Region string
	Model  string

	svc bedrockInvoker
}

// NewBedrockClient loads the default AWS config chain for region.
func NewBedrockClient(ctx context.Context, region, model string) (*BedrockClient, error) {
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("bedrock model is required")
	}
	if !strings.Contains(strings.ToLower(model), "anthropic.") {
		return nil, fmt.Errorf("unsupported Bedrock model family for %q", model)
	}

	loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(loadCtx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.Region == "" {
		return nil, errors.New("AWS region not resolved: set llm.region or AWS_REGION")
	}

	// Retries are driven by RetryPolicy, not the SDK.
	svc := bedrockruntime.NewFromConfig(cfg, func(o *bedrockruntime.Options) {
		o.RetryMaxAttempts = 1
	})
	return &BedrockClient{Region: cfg.Region, Model: model, svc: svc}, nil
}

// Name returns the backend name.
func (b *BedrockClient) Name() string { return "bedrock" }

// ModelName returns the configured model id.
func (b *BedrockClient) ModelName() string { return b.Model }

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int32              `json:"max_tokens"`
	Temperature      *float32           `json:"temperature,omitempty"`
	System           string             `json:"system,omitempty"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
	Usage      struct {
		InputTokens  int32 `json:"input_tokens"`
		OutputTokens int32 `json:"output_tokens"`
	} `json:"usage"`
}

// Generate maps req onto the Anthropic messages API.
func (b *BedrockClient) Generate(ctx context.Context, req *Request) (*Result, error) {
	payload := anthropicRequest{
		AnthropicVersion: bedrockAnthropicVersion,
		MaxTokens:        1024,
		System:           req.SystemInstructionText(),
	}
	if gc := req.GenerationConfig; gc != nil {
		payload.Temperature = gc.Temperature
		if gc.MaxOutputTokens > 0 {
			payload.MaxTokens = gc.MaxOutputTokens
		}
		if gc.ResponseSchema != nil {
			payload.System = strings.TrimSpace(payload.System + "\n\n" + schemaInstruction(gc.ResponseSchema))
		}
	}
	for _, c := range req.Contents {
		role := c.Role
		if role == RoleModel {
			role = "assistant"
		}
		if role == "" {
			role = RoleUser
		}
		msg := anthropicMessage{Role: role}
		for _, p := range c.Parts {
			msg.Content = append(msg.Content, anthropicContent{Type: "text", Text: p.Text})
		}
		payload.Messages = append(payload.Messages, msg)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	out, err := b.svc.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.Model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		var respErr *awshttp.ResponseError
		if errors.As(err, &respErr) {
			return nil, &APIError{Service: "Bedrock", StatusCode: respErr.HTTPStatusCode(), Body: respErr.Err.Error()}
		}
		return nil, fmt.Errorf("bedrock invoke error: %w", err)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode Anthropic response: %w", err)
	}

	cand := Candidate{FinishReason: resp.StopReason}
	for _, c := range resp.Content {
		if c.Type == "text" {
			cand.Content.Parts = append(cand.Content.Parts, Part{Text: c.Text})
		}
	}
	return Validate(&Response{
		Candidates: []Candidate{cand},
		UsageMetadata: &UsageMetadata{
			PromptTokenCount:     resp.Usage.InputTokens,
			CandidatesTokenCount: resp.Usage.OutputTokens,
			TotalTokenCount:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	})
}

// schemaInstruction asks for JSON output since the messages API has no
// response schema parameter.
func schemaInstruction(s *Schema) string {
	data, err := json.Marshal(s)
	if err != nil {
		return "Respond with a single JSON object only."
	}
	return "Respond with a single JSON object only, no prose and no code fences, matching this schema: " + string(data)
}
