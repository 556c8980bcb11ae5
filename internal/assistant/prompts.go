package assistant

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPromptsYAML []byte

// Prompts holds every prompt template. {{body}}, {{recipient}} and
// {{subject}} are substituted at call time.
type Prompts struct {
	System           string `yaml:"system"`
	DraftReply       string `yaml:"draft_reply"`
	ComposeEmail     string `yaml:"compose_email"`
	ComposeRecipient string `yaml:"compose_recipient"`
	ComposeSubject   string `yaml:"compose_subject"`
	Summarize        string `yaml:"summarize"`
	ExtractEvent     string `yaml:"extract_event"`

	// Template is inserted into a draft by insertTemplateText when no text
	// is given.
	Template string `yaml:"template"`
}

// DefaultPrompts returns the embedded prompt pack.
func DefaultPrompts() Prompts {
	var p Prompts
	if err := yaml.Unmarshal(defaultPromptsYAML, &p); err != nil {
		panic(fmt.Sprintf("embedded prompts.yaml is invalid: %v", err))
	}
	return p
}

// LoadPrompts reads a YAML prompt file and overlays it on the defaults.
// Keys missing from the file keep their default. An empty path returns
// the defaults.
func LoadPrompts(path string) (Prompts, error) {
	p := DefaultPrompts()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Prompts{}, fmt.Errorf("failed to read prompts file: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Prompts{}, fmt.Errorf("failed to parse prompts file %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Prompts{}, fmt.Errorf("prompts file %s: %w", path, err)
	}
	return p, nil
}

// Validate checks that every body-bearing template references {{body}}.
func (p Prompts) Validate() error {
	for name, tmpl := range map[string]string{
		"draft_reply":   p.DraftReply,
		"compose_email": p.ComposeEmail,
		"summarize":     p.Summarize,
		"extract_event": p.ExtractEvent,
	} {
		if !strings.Contains(tmpl, "{{body}}") {
			return fmt.Errorf("prompt %q must contain {{body}}", name)
		}
	}
	return nil
}

// render substitutes placeholders in one pass, so user text that happens
// to contain a placeholder is left alone.
func render(tmpl string, pairs ...string) string {
	args := make([]string, 0, len(pairs))
	for i := 0; i+1 < len(pairs); i += 2 {
		args = append(args, "{{"+pairs[i]+"}}", pairs[i+1])
	}
	return strings.NewReplacer(args...).Replace(tmpl)
}
