package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldsense/fieldsense/internal/browserfeed"
	"github.com/fieldsense/fieldsense/internal/config"
	"github.com/fieldsense/fieldsense/internal/db"
	"github.com/fieldsense/fieldsense/internal/inference"
	"github.com/fieldsense/fieldsense/internal/keyring"
	"github.com/fieldsense/fieldsense/internal/logging"
	"github.com/fieldsense/fieldsense/internal/pipeline"
	"github.com/fieldsense/fieldsense/internal/ratelimit"
	"github.com/fieldsense/fieldsense/internal/server"
	"github.com/fieldsense/fieldsense/internal/session"
)

// version is set at build time via -ldflags.
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "fieldsense",
	Short: "Context-aware autocomplete companion daemon",
	Long: `fieldsense powers the FieldSense browser extension: it classifies the
focused field, assembles a privacy-filtered snapshot of ambient browsing
context and returns a small ranked set of autocomplete suggestions.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "config file path")
	rootCmd.AddCommand(serveCmd, suggestCmd, sessionCmd, quotaCmd, keyCmd, versionCmd)
	sessionCmd.AddCommand(sessionClearCmd)
	keyCmd.AddCommand(keySetCmd, keyDeleteCmd)
}

// buildPipeline wires the component chain from config. The returned cleanup
// closes the store.
func buildPipeline(watcher *config.Watcher) (*pipeline.Pipeline, func(), error) {
	cfg := watcher.Current()

	store, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	tracker := session.NewTracker(store)
	limiter := ratelimit.New(cfg.RateLimit.Requests, cfg.Window())

	var client pipeline.Completer
	if key := keyring.Resolve(cfg.Provider.Name); key != "" {
		if err := inference.ValidateCredential(cfg.Provider.Name, key); err != nil {
			logging.Warnf("credential check: %v", err)
		}
		client = inference.NewClient(newProvider(cfg.Provider.Name, key, cfg.Provider.Model))
	} else {
		logging.Warnf("no API credential for %s; deterministic fill only (set one with 'fieldsense key set %s')",
			cfg.Provider.Name, cfg.Provider.Name)
	}

	opts := pipeline.Options{
		Model:       cfg.Provider.Model,
		Temperature: cfg.Provider.Temperature,
		TopP:        cfg.Provider.TopP,
		MaxTokens:   cfg.Provider.MaxTokens,
	}
	blocklist := watcher.Blocklist
	p := pipeline.New(tracker, limiter, client, opts, blocklist)
	return p, func() { store.Close() }, nil
}

func newProvider(name, key, model string) inference.Provider {
	if name == "anthropic" {
		return inference.NewAnthropicProvider(key, model)
	}
	return inference.NewOpenAIProvider(key, model)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the extension-facing daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		watcher, err := config.Watch(configPath)
		if err != nil {
			return err
		}
		defer watcher.Close()
		cfg := watcher.Current()

		p, cleanup, err := buildPipeline(watcher)
		if err != nil {
			return err
		}
		defer cleanup()

		srv := server.New(p, cfg.Server.Addr, p.PurgeExpiredSession)
		if cfg.Browser.DevToolsURL != "" {
			srv.SetFeedCollector(browserfeed.New(cfg.Browser.DevToolsURL))
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return srv.Run(ctx)
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Run one suggestion request (JSON on stdin) and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.Disable()
		watcher, err := config.Watch(configPath)
		if err != nil {
			return err
		}
		defer watcher.Close()

		p, cleanup, err := buildPipeline(watcher)
		if err != nil {
			return err
		}
		defer cleanup()

		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read request: %w", err)
		}
		var req pipeline.Request
		if err := json.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("parse request: %w", err)
		}

		cfg := watcher.Current()
		if cfg.Browser.DevToolsURL != "" && len(req.Feed.OtherTabs) == 0 {
			if feed, err := browserfeed.New(cfg.Browser.DevToolsURL).Collect(cmd.Context()); err == nil {
				req.Feed = feed
			}
		}

		result, err := p.Suggest(cmd.Context(), req)
		if err != nil {
			return err
		}
		p.Commit(req.Value, result)
		return json.NewEncoder(os.Stdout).Encode(result)
	},
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or clear the rolling session intent",
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the session intent immediately",
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.Disable()
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		store, err := db.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := session.NewTracker(store).Clear(); err != nil {
			return err
		}
		fmt.Println("session cleared")
		return nil
	},
}

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show the running daemon's local rate-limit quota",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		client := &http.Client{Timeout: 3 * time.Second}
		resp, err := client.Get("http://" + cfg.Server.Addr + "/v1/quota")
		if err != nil {
			return fmt.Errorf("daemon not reachable at %s: %w", cfg.Server.Addr, err)
		}
		defer resp.Body.Close()
		_, err = io.Copy(os.Stdout, resp.Body)
		return err
	},
}

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the inference API credential",
}

var keySetCmd = &cobra.Command{
	Use:   "set <provider> <key>",
	Short: "Store an API credential in the OS keychain",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, key := args[0], args[1]
		if err := inference.ValidateCredential(provider, key); err != nil {
			return err
		}
		if err := keyring.Set(provider, key); err != nil {
			return err
		}
		fmt.Printf("credential stored for %s\n", provider)
		return nil
	},
}

var keyDeleteCmd = &cobra.Command{
	Use:   "delete <provider>",
	Short: "Remove an API credential from the OS keychain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := keyring.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("credential removed for %s\n", args[0])
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("fieldsense", version)
	},
}
