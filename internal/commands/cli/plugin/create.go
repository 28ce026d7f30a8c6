// Package plugin provides plugin creation commands.
package plugin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/andrei-cloud/go_nodehost/internal/config"
	"github.com/andrei-cloud/go_nodehost/internal/plugins"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	pluginDesc     string
	pluginCategory string
	pluginDisplay  string
)

var validName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// NewCreateCommand creates the create command.
func NewCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a new plugin",
		Long: `Create a manifest plugin NAME.yaml in the plugin directory. The manifest declares
one node with a sample input schema and output that can be edited in place.`,
		Args: cobra.ExactArgs(1),
		RunE: runCreatePlugin,
	}

	// Add flags.
	cmd.Flags().StringVarP(&pluginDesc, "desc", "d", "", "Node description")
	cmd.Flags().StringVarP(&pluginCategory, "category", "c", "", "Node category")
	cmd.Flags().StringVar(&pluginDisplay, "display-name", "", "Node display name")

	return cmd
}

func runCreatePlugin(cmd *cobra.Command, args []string) error {
	path, err := createManifest(config.Get().Plugin.Path, args[0], manifestOptions{
		displayName: pluginDisplay,
		description: pluginDesc,
		category:    pluginCategory,
	})
	if err != nil {
		return err
	}

	cmd.Printf("Created plugin %s at %s\n", args[0], path)

	return nil
}

type manifestOptions struct {
	displayName string
	description string
	category    string
}

// createManifest writes a manifest template for name into dir and returns its path.
func createManifest(dir, name string, opts manifestOptions) (string, error) {
	if !validName.MatchString(name) {
		return "", fmt.Errorf("invalid node name %q", name)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create plugin directory: %w", err)
	}

	path := filepath.Join(dir, name+".yaml")
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("plugin %s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	content := manifestTemplate(name, opts)

	// The template must load as the node it names.
	m, err := plugins.ParseManifest(content)
	if err != nil {
		return "", err
	}
	if _, err := m.Descriptor(); err != nil {
		return "", err
	}

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to create manifest: %w", err)
	}

	return path, nil
}

func manifestTemplate(name string, opts manifestOptions) []byte {
	quote := func(s string) string {
		out, _ := yaml.Marshal(s)
		return string(out[:len(out)-1])
	}

	display := opts.displayName
	if display == "" {
		display = name
	}

	content := fmt.Sprintf("name: %s\ndisplay_name: %s\n", name, quote(display))
	if opts.description != "" {
		content += fmt.Sprintf("description: %s\n", quote(opts.description))
	}
	if opts.category != "" {
		content += fmt.Sprintf("category: %s\n", quote(opts.category))
	}
	content += `input:
  required:
    value: [INT, {default: 0, min: 0, max: 100}]
  optional:
    label: [STRING, {multiline: false}]
output: [INT]
output_name: [value]
`

	return []byte(content)
}
