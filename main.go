package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"library-portal/library"
	"library-portal/library/api"
	"library-portal/library/config"
	"library-portal/library/logger"
	"library-portal/library/portal"
	"library-portal/library/session"
	"library-portal/library/store"
)

// app is everything a command needs, built once per process.
type app struct {
	cfg     *config.Config
	store   *store.Store
	client  *api.Client
	router  *library.Router
	session *session.Store
	portal  *portal.Portal
}

func newApp(cfgPath, logLevel string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if logLevel == "" {
		logLevel = cfg.Log.Level
	}
	if err := logger.SetLevel(logLevel); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	st, err := store.Open(cfg.Storage.SessionPath(), cfg.Storage.KeyPath())
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	client := api.NewClient(cfg.API.BaseURL, st, api.WithTimeout(cfg.API.Timeout))
	router := library.NewRouter(library.RouteHome)
	sess := session.New(st, client, router)
	if err := sess.Initialize(); err != nil {
		st.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}

	logger.Log.WithField("api", client.BaseURL()).Debug("client ready")
	return &app{
		cfg:     cfg,
		store:   st,
		client:  client,
		router:  router,
		session: sess,
		portal:  portal.New(client, sess, router, cfg.API.AssetOrigin),
	}, nil
}

func (a *app) Close() error { return a.store.Close() }

func newRootCmd() *cobra.Command {
	var (
		cfgPath  string
		logLevel string
		a        *app
	)

	root := &cobra.Command{
		Use:           "library-portal",
		Short:         "Terminal client for the library service",
		Long:          "Browse and reserve books, or manage the catalog as a librarian.\nRun without arguments for the interactive prompt.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "env" {
				return nil
			}
			var err error
			a, err = newApp(cfgPath, logLevel)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a == nil {
				return nil
			}
			return a.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd.Context(), a, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (YAML or TOML)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LIBRARY_LOG_LEVEL")

	get := func() *app { return a }
	root.AddCommand(authCommands(get)...)
	root.AddCommand(readerCommands(get)...)
	root.AddCommand(adminCommand(get), envCommand())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
