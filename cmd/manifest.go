package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxdraft/internal/cards"
	"github.com/teemow/inboxdraft/internal/config"
	"github.com/teemow/inboxdraft/internal/google"
)

// deployment is the Workspace add-on deployment descriptor accepted by
// "gcloud workspace-add-ons deployments create --deployment-file".
type deployment struct {
	OAuthScopes []string `json:"oauthScopes"`
	AddOns      addOns   `json:"addOns"`
}

type addOns struct {
	Common      commonAddOn `json:"common"`
	Gmail       gmailAddOn  `json:"gmail"`
	HTTPOptions httpOptions `json:"httpOptions"`
}

type commonAddOn struct {
	Name             string  `json:"name"`
	LogoURL          string  `json:"logoUrl"`
	UseLocaleFromApp bool    `json:"useLocaleFromApp"`
	HomepageTrigger  trigger `json:"homepageTrigger"`
}

type trigger struct {
	RunFunction string `json:"runFunction"`
}

type gmailAddOn struct {
	ContextualTriggers []contextualTrigger `json:"contextualTriggers"`
	ComposeTrigger     composeTrigger      `json:"composeTrigger"`
}

type contextualTrigger struct {
	Unconditional     struct{} `json:"unconditional"`
	OnTriggerFunction string   `json:"onTriggerFunction"`
}

type composeTrigger struct {
	Actions     []composeAction `json:"actions"`
	DraftAccess string          `json:"draftAccess"`
}

type composeAction struct {
	RunFunction string `json:"runFunction"`
	Label       string `json:"label"`
	LogoURL     string `json:"logoUrl,omitempty"`
}

type httpOptions struct {
	AuthorizationHeader string `json:"authorizationHeader"`
}

type manifestOptions struct {
	name    string
	logoURL string
}

func newManifestCmd() *cobra.Command {
	opts := manifestOptions{
		name:    "Inbox Draft",
		logoURL: "https://www.gstatic.com/images/icons/material/system/1x/edit_black_48dp.png",
	}

	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Print the add-on deployment descriptor",
		Long: `Print the JSON deployment descriptor of the add-on. Every trigger points at
the backend under --base-url.

Example:
  inboxdraft manifest --base-url https://addon.example.com > deployment.json
  gcloud workspace-add-ons deployments create inboxdraft --deployment-file=deployment.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configFile
			if path == "" {
				path = config.DefaultPath()
			}
			cfg, err := config.Load(path, cmd.Flags())
			if err != nil {
				return err
			}
			return writeManifest(cmd.OutOrStdout(), cfg, opts)
		},
	}

	f := cmd.Flags()
	f.String("base-url", "", "Public URL of the add-on backend")
	f.StringVar(&opts.name, "name", opts.name, "Add-on name shown in Gmail")
	f.StringVar(&opts.logoURL, "logo-url", opts.logoURL, "Add-on logo URL")

	return cmd
}

func buildManifest(cfg *config.Config, opts manifestOptions) (*deployment, error) {
	if cfg.HTTP.BaseURL == "" {
		return nil, errors.New("base URL is required (set --base-url or http.base_url)")
	}
	if err := cfg.HTTP.ValidateBaseURL(); err != nil {
		return nil, err
	}

	urls := cards.ActionURLs{Base: cfg.HTTP.BaseURL}
	return &deployment{
		OAuthScopes: google.AddonScopes,
		AddOns: addOns{
			Common: commonAddOn{
				Name:             opts.name,
				LogoURL:          opts.logoURL,
				UseLocaleFromApp: true,
				HomepageTrigger:  trigger{RunFunction: urls.For(cards.ActionHomepage)},
			},
			Gmail: gmailAddOn{
				ContextualTriggers: []contextualTrigger{
					{OnTriggerFunction: urls.For(cards.ActionOnGmailMessage)},
				},
				ComposeTrigger: composeTrigger{
					Actions: []composeAction{{
						RunFunction: urls.For(cards.ActionHomepage),
						Label:       opts.name,
						LogoURL:     opts.logoURL,
					}},
					DraftAccess: "METADATA",
				},
			},
			HTTPOptions: httpOptions{AuthorizationHeader: "SYSTEM_ID_TOKEN"},
		},
	}, nil
}

func writeManifest(w io.Writer, cfg *config.Config, opts manifestOptions) error {
	m, err := buildManifest(cfg, opts)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return nil
}
