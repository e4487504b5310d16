package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"library-portal/library"
	"library-portal/library/api"
	"library-portal/library/config"
	"library-portal/library/console"
	"library-portal/library/logger"
)

func main() {
	var (
		cfgPath  string
		email    string
		parallel int
	)

	cmd := &cobra.Command{
		Use:   "import_books <manifest.json>",
		Short: "Create categories and books from a JSON manifest",
		Long: "Reads a JSON array of books (title, author, genre, language, isbn, category, cover)\n" +
			"and creates them as a librarian. Missing categories are created first; cover paths\n" +
			"are relative to the manifest.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if err := logger.SetLevel(cfg.Log.Level); err != nil {
				return err
			}

			entries, err := readManifest(args[0])
			if err != nil {
				return err
			}

			password := os.Getenv("LIBRARY_IMPORT_PASSWORD")
			if password == "" {
				if password, err = console.ReadPassword(cmd.InOrStdin(), bufio.NewScanner(cmd.InOrStdin()), cmd.OutOrStdout(), fmt.Sprintf("Password for %s: ", email)); err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
			}

			var token string
			client := api.NewClient(cfg.API.BaseURL, api.TokenFunc(func() string { return token }), api.WithTimeout(cfg.API.Timeout))
			resp, err := client.Auth.Login(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("login: %s", api.Message(err, err.Error()))
			}
			if resp.Role != library.RoleLibrarian {
				return fmt.Errorf("%s is not a librarian", email)
			}
			token = resp.Token

			imp := &importer{client: client, baseDir: filepath.Dir(args[0]), parallel: parallel}
			report, err := imp.run(cmd.Context(), entries)
			if err != nil {
				return err
			}
			report.print(cmd.OutOrStdout())
			if report.failed() > 0 {
				return fmt.Errorf("%d book(s) failed to import", report.failed())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "config file (YAML or TOML)")
	cmd.Flags().StringVar(&email, "email", "", "librarian email")
	cmd.Flags().IntVar(&parallel, "parallel", 4, "books created concurrently")
	cmd.MarkFlagRequired("email")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func readManifest(path string) ([]entry, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return entries, nil
}
