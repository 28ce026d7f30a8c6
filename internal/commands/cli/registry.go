// Package cli provides centralized command registration.
package cli

import (
	"github.com/andrei-cloud/go_nodehost/internal/commands/cli/patch"
	"github.com/andrei-cloud/go_nodehost/internal/commands/cli/plugin"
	"github.com/andrei-cloud/go_nodehost/internal/commands/cli/server"
	"github.com/andrei-cloud/go_nodehost/internal/commands/cli/status"
	"github.com/spf13/cobra"
)

// RegisterCommands registers all root commands.
func RegisterCommands(root *cobra.Command) error {
	root.AddCommand(server.NewServeCommand())
	root.AddCommand(plugin.NewPluginCommand())
	root.AddCommand(patch.NewPatchCommand())
	root.AddCommand(status.NewStatusCommand())

	return nil
}
