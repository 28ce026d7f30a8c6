// Package server provides server-related CLI commands.
package server

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/andrei-cloud/go_nodehost/internal/config"
	"github.com/andrei-cloud/go_nodehost/internal/logging"
	"github.com/andrei-cloud/go_nodehost/internal/nodes"
	"github.com/andrei-cloud/go_nodehost/internal/objinfo"
	"github.com/andrei-cloud/go_nodehost/internal/plugins"
	"github.com/andrei-cloud/go_nodehost/internal/routes"
	"github.com/andrei-cloud/go_nodehost/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the node host",
		Long: `Start the node host: load plugins into the node registry, watch the registry for
new nodes and serve /object_info from the metadata cache. SIGHUP loads plugins added to
the plugin directory since the last scan.`,
		RunE: runServe,
	}

	// Add serve command specific flags that can override config.
	cmd.Flags().String("host", "localhost", "Server host")
	cmd.Flags().Int("port", 8188, "Server port")
	cmd.Flags().String("tcp-address", "", "Address of the TCP query port (disabled when empty)")
	cmd.Flags().Bool("patch", true, "Serve object_info from the metadata cache")
	cmd.Flags().Bool("access-log", false, "Log every request served by the host routes")

	// Bind serve command flags to viper.
	v := config.GetViper()
	_ = v.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	_ = v.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	_ = v.BindPFlag("server.tcp_address", cmd.Flags().Lookup("tcp-address"))
	_ = v.BindPFlag("patch.enabled", cmd.Flags().Lookup("patch"))
	_ = v.BindPFlag("server.access_log", cmd.Flags().Lookup("access-log"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.Get()
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	// Make sure plugin directory exists.
	if err := os.MkdirAll(cfg.Plugin.Path, 0o755); err != nil {
		return fmt.Errorf("failed to create plugin directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	registry := nodes.NewRegistry()
	svc := objinfo.NewService(registry, objinfo.WatcherConfig{
		PollInterval:        cfg.Watcher.PollInterval,
		UnavailableInterval: cfg.Watcher.UnavailableInterval,
		BackoffInterval:     cfg.Watcher.BackoffInterval,
	}, cfg.Watcher.ExtractTimeout, objinfo.NewMetrics(promReg))

	if cfg.Patch.Enabled {
		// Reached only when the host source carries the patch block.
		server.SetObjectInfoHook(func(t routes.Table) {
			if err := svc.Interceptor.Install(t); err != nil {
				log.Warn().Str("event", "patch_failed").Err(err).Msg("object_info hook failed")
			}
		})
		defer server.SetObjectInfoHook(nil)
	}

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	srv := server.NewServer(server.Config{
		Address:   addr,
		AccessLog: cfg.Server.AccessLog,
	}, registry, svc.Extractor, promReg)

	if cfg.Patch.Enabled {
		if err := svc.Interceptor.Install(srv.Routes()); err != nil {
			log.Warn().
				Str("event", "patch_failed").
				Err(err).
				Msg("object_info cache not installed, serving uncached handlers")
		}
	}

	loader := plugins.NewLoader(ctx, registry)
	defer func() {
		if err := loader.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close plugin runtime")
		}
	}()

	var queries *server.QueryServer
	if cfg.Server.TCPAddress != "" {
		qs, err := server.NewQueryServer(cfg.Server.TCPAddress, svc.Interceptor)
		if err != nil {
			return fmt.Errorf("failed to initialize query server: %w", err)
		}
		queries = qs
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		svc.Watcher.Run(gctx)
		return nil
	})

	g.Go(func() error {
		n, err := loader.LoadAll(cfg.Plugin.Path)
		if err != nil {
			log.Error().Str("event", "plugin_scan_failed").Err(err).Msg("failed to load plugins")
		}
		registry.MarkAvailable()
		log.Info().
			Str("event", "registry_available").
			Int("nodes", n).
			Msg("node registry available")

		return nil
	})

	g.Go(func() error {
		return reloadOnHangup(gctx, loader, cfg.Plugin.Path)
	})

	g.Go(func() error {
		if err := srv.Start(); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	if queries != nil {
		g.Go(func() error {
			if err := queries.Start(); err != nil {
				return fmt.Errorf("failed to start query server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("error during server shutdown")
		}
		if queries != nil {
			if err := queries.Stop(); err != nil {
				log.Error().Err(err).Msg("error during query server shutdown")
			}
		}

		return nil
	})

	return g.Wait()
}

// reloadOnHangup loads plugins added to dir whenever SIGHUP is received. Nodes that are
// already registered are kept.
func reloadOnHangup(ctx context.Context, loader *plugins.Loader, dir string) error {
	reloadChan := make(chan os.Signal, 1)
	signal.Notify(reloadChan, syscall.SIGHUP)
	defer signal.Stop(reloadChan)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-reloadChan:
			log.Info().Str("event", "plugin_rescan").Msg("rescanning plugin directory...")

			n, err := loader.LoadAll(dir)
			if err != nil {
				log.Error().Err(err).Msg("failed to rescan plugins")
				continue
			}
			log.Info().
				Str("event", "plugin_rescanned").
				Int("new_nodes", n).
				Msg("plugins rescanned")
		}
	}
}
