// Package status provides a live terminal view of a running host.
package status

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/andrei-cloud/go_nodehost/internal/config"
	"github.com/andrei-cloud/go_nodehost/internal/logging"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	statusURL      string
	statusInterval time.Duration
	statusOnce     bool
)

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a live view of a running host's nodes",
		Long: `Poll /object_info of a running host and show the number of nodes per category.
Use --once to print a single summary without the interactive view.`,
		RunE: runStatus,
	}

	cmd.Flags().StringVar(&statusURL, "url", "", "Base URL of the host (default from server.host and server.port)")
	cmd.Flags().DurationVar(&statusInterval, "interval", 2*time.Second, "Polling interval")
	cmd.Flags().BoolVar(&statusOnce, "once", false, "Print one summary and exit")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	// Disable logging for CLI commands.
	logging.Disable()

	target := statusURL
	if target == "" {
		cfg := config.Get()
		target = "http://" + net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	}

	ctx := contextOrBackground(cmd.Context())
	c := newClient(target, 10*time.Second)
	fetch := func() snapshotMsg {
		return c.fetch(ctx)
	}

	model := newStatusModel(target, statusInterval, fetch)

	if statusOnce {
		msg := fetch()
		if msg.err != nil {
			return fmt.Errorf("failed to query %s: %w", target, msg.err)
		}
		updated, _ := model.Update(msg)
		_, err := fmt.Fprint(cmd.OutOrStdout(), updated.View())
		return err
	}

	p := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("status view failed: %w", err)
	}

	return nil
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}

	return ctx
}
