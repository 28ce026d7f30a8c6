// Package plugin provides plugin listing commands.
package plugin

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/andrei-cloud/go_nodehost/internal/config"
	"github.com/andrei-cloud/go_nodehost/internal/logging"
	"github.com/andrei-cloud/go_nodehost/internal/nodes"
	"github.com/andrei-cloud/go_nodehost/internal/objinfo"
	"github.com/andrei-cloud/go_nodehost/internal/plugins"
	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed plugins",
		Long:  `Load the plugin directory once and list every node with its extracted metadata.`,
		RunE:  runListPlugins,
	}
}

func runListPlugins(cmd *cobra.Command, _ []string) error {
	// Disable logging for CLI commands.
	logging.Disable()

	cfg := config.Get()
	ctx := cmd.Context()

	registry := nodes.NewRegistry()
	loader := plugins.NewLoader(ctx, registry)
	defer func() {
		_ = loader.Close()
	}()

	if _, err := loader.LoadAll(cfg.Plugin.Path); err != nil {
		return fmt.Errorf("failed to load plugins: %w", err)
	}
	registry.MarkAvailable()

	snap, err := registry.Snapshot()
	if err != nil {
		return err
	}

	timeout := cfg.Watcher.ExtractTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	described := objinfo.NewExtractor(timeout, nil).ExtractAll(ctx, snap)

	if err := writeTable(cmd.OutOrStdout(), loader.Loaded(), described); err != nil {
		return err
	}
	for _, path := range loader.Skipped() {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: node already registered\n", path)
	}

	return nil
}

// writeTable prints one row per loaded plugin. Plugins whose metadata could not be
// extracted are marked as failed.
func writeTable(out io.Writer, loaded []plugins.Plugin, described map[string]objinfo.Metadata) error {
	sort.Slice(loaded, func(i, j int) bool { return loaded[i].ID < loaded[j].ID })

	// Create tabwriter for aligned output.
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "Node\tDisplay Name\tKind\tCategory\tInputs\tOutputs")
	_, _ = fmt.Fprintln(w, "----\t------------\t----\t--------\t------\t-------")

	for _, p := range loaded {
		m, ok := described[p.ID]
		if !ok {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", p.ID, "-", p.Kind, "FAILED", "-", "-")
			continue
		}

		inputs := 0
		for _, g := range m.InputOrder {
			inputs += len(g.Params)
		}
		outputs := strings.Join(m.Output, ",")
		if outputs == "" {
			outputs = "-"
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			p.ID,
			m.DisplayName,
			p.Kind,
			m.Category,
			inputs,
			outputs)
	}

	return w.Flush()
}
