package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	openaisdk "github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
	"github.com/spf13/cobra"

	"github.com/reslab/reslab/agent"
	"github.com/reslab/reslab/config"
	"github.com/reslab/reslab/coordinator"
	"github.com/reslab/reslab/logging"
	"github.com/reslab/reslab/model"
	anthropicmodel "github.com/reslab/reslab/model/anthropic"
	openaimodel "github.com/reslab/reslab/model/openai"
	"github.com/reslab/reslab/record"
	"github.com/reslab/reslab/record/sqlite"
	"github.com/reslab/reslab/server"
	"github.com/reslab/reslab/session"
)

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the assistant's HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}
			return runServe(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "override listen address (host:port)")
	return cmd
}

func runServe(cmd *cobra.Command, cfg config.Config) error {
	logger := buildLogger(cfg)

	store, err := openRecordStore(cfg, logger)
	if err != nil {
		return err
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	client, err := buildModelClient(cfg)
	if err != nil {
		return err
	}

	agents := []agent.SubAgent{
		agent.NewProjectAgent(store, func(o *agent.Options) { o.Logger = logger.WithComponent("project_agent") }),
		agent.NewPersonAgent(store, func(o *agent.Options) { o.Logger = logger.WithComponent("person_agent") }),
		agent.NewAdministratorAgent(store, client, func(o *agent.Options) { o.Logger = logger.WithComponent("research_administrator") }),
	}

	sessions := session.NewInMemoryStore()
	coord := coordinator.New(client, sessions, agents, func(o *coordinator.Options) {
		o.Logger = logger.WithComponent("coordinator")
	})

	srv := server.New(cfg.Server.Listen, coord, sessions, func(o *server.Options) {
		o.Logger = logger.WithComponent("server")
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sessions.RunJanitor(ctx, cfg.Session.SweepInterval, cfg.Session.IdleTTL, logger.WithComponent("session"))

	logger.Info("serve.starting",
		"listen", cfg.Server.Listen,
		"provider", cfg.Model.Provider,
		"backend", cfg.Store.Backend)
	return srv.ListenAndServe(ctx)
}

// openRecordStore selects the record store backend from configuration.
func openRecordStore(cfg config.Config, logger logging.Logger) (record.Store, error) {
	switch cfg.Store.Backend {
	case "sqlite":
		store, err := sqlite.Open(cfg.Store.Path, func(o *sqlite.Options) { o.Logger = logger })
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store at %s: %w", cfg.Store.Path, err)
		}
		return store, nil
	case "memory":
		return record.NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// buildModelClient selects the text-completion provider from configuration.
func buildModelClient(cfg config.Config) (model.Client, error) {
	switch cfg.Model.Provider {
	case "openai":
		var sdkOpts []openaioption.RequestOption
		if cfg.Model.APIKey != "" {
			sdkOpts = append(sdkOpts, openaioption.WithAPIKey(cfg.Model.APIKey))
		}
		sdk := openaisdk.NewClient(sdkOpts...)
		return openaimodel.NewClientFromSDK(&sdk, func(o *openaimodel.Options) {
			if cfg.Model.Name != "" {
				o.Model = cfg.Model.Name
			}
		}), nil
	case "anthropic":
		return anthropicmodel.NewClient(func(o *anthropicmodel.Options) {
			if cfg.Model.Name != "" {
				o.Model = anthropicsdk.Model(cfg.Model.Name)
			}
			o.APIKey = cfg.Model.APIKey
		}), nil
	case "mock":
		return model.NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
	}
}
