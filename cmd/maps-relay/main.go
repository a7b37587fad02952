package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aimaps/maps-relay/internal/app"
	"github.com/aimaps/maps-relay/internal/config"
	"github.com/aimaps/maps-relay/internal/logging"
	"github.com/aimaps/maps-relay/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const shutdownGrace = 5 * time.Second

func main() {
	config.LoadDotEnv()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()

	root := &cobra.Command{
		Use:           "maps-relay",
		Short:         "OpenAI-compatible chat relay that answers place questions from Google Maps",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("ollama-host", v.GetString(config.KeyOllamaHost), "Ollama base URL")
	flags.String("ollama-model", v.GetString(config.KeyOllamaModel), "Ollama model name")
	flags.String("maps-base-url", "", "override the Google Maps API host")
	flags.Duration("inference-timeout", 0, "per-request inference timeout (0 disables)")
	flags.String("log-level", v.GetString(config.KeyLogLevel), "log level")
	flags.String("log-format", v.GetString(config.KeyLogFormat), "log format: text or json")
	flags.String("log-dir", "", "write logs to <dir>/<component>.log instead of stderr")
	bind(v, flags.Lookup("ollama-host"), config.KeyOllamaHost)
	bind(v, flags.Lookup("ollama-model"), config.KeyOllamaModel)
	bind(v, flags.Lookup("maps-base-url"), config.KeyMapsBaseURL)
	bind(v, flags.Lookup("inference-timeout"), config.KeyInferenceTimeout)
	bind(v, flags.Lookup("log-level"), config.KeyLogLevel)
	bind(v, flags.Lookup("log-format"), config.KeyLogFormat)
	bind(v, flags.Lookup("log-dir"), config.KeyLogDir)

	root.AddCommand(newServeCmd(v), newMCPCmd(v), newVersionCmd())
	return root
}

func bind(v *viper.Viper, flag *pflag.Flag, key string) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP relay",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			logger, cleanup, err := logging.New("relay", logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Dir: cfg.LogDir})
			if err != nil {
				return err
			}
			defer cleanup()

			a, err := app.New(logger, cfg)
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              cfg.Addr,
				Handler:           a.HTTPHandler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				logger.Infof("relay listening on %s (model=%s ollama=%s search=%t)",
					cfg.Addr, cfg.OllamaModel, cfg.OllamaHost, a.Dispatcher.SearchEnabled())
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().String("addr", v.GetString(config.KeyAddr), "listen address")
	cmd.Flags().String("model-id", v.GetString(config.KeyModelID), "virtual model id shown to clients")
	bind(v, cmd.Flags().Lookup("addr"), config.KeyAddr)
	bind(v, cmd.Flags().Lookup("model-id"), config.KeyModelID)
	return cmd
}

func newMCPCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve search_places as an MCP tool over stdio",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			// stdout carries the protocol, so logs must never go there.
			logger, cleanup, err := logging.New("mcp", logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Dir: cfg.LogDir})
			if err != nil {
				return err
			}
			defer cleanup()

			a, err := app.New(logger, cfg)
			if err != nil {
				return err
			}
			return a.MCPServer().Run()
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Get())
		},
	}
}
