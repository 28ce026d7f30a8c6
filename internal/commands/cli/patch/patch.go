// Package patch provides the source patching commands.
package patch

import (
	"fmt"

	"github.com/andrei-cloud/go_nodehost/internal/config"
	"github.com/andrei-cloud/go_nodehost/internal/installer"
	"github.com/andrei-cloud/go_nodehost/internal/logging"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// NewPatchCommand creates the patch command group.
func NewPatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patch",
		Short: "Host source patching commands",
		Long:  `Commands that insert the object_info hook into a host source file.`,
	}

	cmd.AddCommand(newInstallCommand(afero.NewOsFs()))

	return cmd
}

func newInstallCommand(fs afero.Fs) *cobra.Command {
	opts := installer.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "install FILE",
		Short: "Insert the object_info hook into FILE",
		Long: `Insert the patch block into FILE right after the anchor. The original file is kept
as FILE.bak. A file that already contains the marker is left unchanged, so the command
can run on every start.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			logging.Setup(cfg.Log.Level, cfg.Log.Format)

			res, err := installer.Install(fs, args[0], opts)
			if err != nil {
				return fmt.Errorf("failed to install patch: %w", err)
			}
			cmd.Printf("%s: %s\n", args[0], res)

			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Anchor, "anchor", opts.Anchor, "Regular expression the block is inserted after")
	cmd.Flags().StringVar(&opts.Marker, "marker", opts.Marker, "Text whose presence means the file is patched")
	cmd.Flags().StringVar(&opts.Block, "block", opts.Block, "Text to insert; must contain the marker")

	return cmd
}
