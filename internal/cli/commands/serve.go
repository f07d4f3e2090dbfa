package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sbtypegen/internal/webhook"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Relay Storyblok webhooks to a build hook",
		Long: `Start an HTTP server that accepts Storyblok story webhooks, validates them
and triggers the configured build hook. With --regenerate every accepted webhook
also regenerates the declarations.

Routes:
  POST /webhook/{secret}  webhook guarded by webhook.secret
  POST /webhook           webhook when no secret is configured
  GET  /healthz           liveness probe`,
		Example: `  # Relay to a Netlify build hook
  sbtypegen serve --secret s3cret --build-hook https://api.netlify.com/build_hooks/abc

  # Also regenerate types on every publish
  sbtypegen serve --regenerate`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default: :8787)")
	cmd.Flags().String("secret", "", "Secret expected in the webhook path")
	cmd.Flags().String("build-hook", "", "Build hook URL to POST to")
	cmd.Flags().Bool("regenerate", false, "Regenerate declarations on every accepted webhook")

	return cmd
}

func runServe(cmd *cobra.Command) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	wc := cc.Cfg.Webhook

	serverCfg := webhook.Config{
		Addr:         wc.Addr,
		Secret:       wc.Secret,
		BuildHookURL: wc.BuildHookURL,
		Logger:       cc.Logger,
	}

	if wc.Regenerate {
		history, err := cc.OpenHistory()
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		if history != nil {
			defer func() { _ = history.Close() }()
		}
		serverCfg.Regenerator = cc.NewPipeline(history)
	}

	if wc.Secret == "" {
		cc.Renderer.Warning("webhook.secret is not set; POST /webhook accepts unauthenticated requests")
	}
	if wc.BuildHookURL == "" {
		cc.Renderer.Warning("webhook.build_hook_url is not set; webhooks will be answered with 500")
	}

	cc.Renderer.Printf("Relaying Storyblok webhooks on %s\n", wc.Addr)
	cc.Renderer.Println("Press Ctrl+C to stop")

	return webhook.NewServer(serverCfg).Serve(cmd.Context())
}
