package plugin

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/andrei-cloud/go_nodehost/internal/nodes"
	"github.com/andrei-cloud/go_nodehost/internal/objinfo"
	"github.com/andrei-cloud/go_nodehost/internal/plugins"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateManifestLoads(t *testing.T) {
	dir := t.TempDir()

	path, err := createManifest(dir, "Threshold", manifestOptions{
		displayName: "Threshold: value",
		description: "Clamps a value.",
		category:    "math",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Threshold.yaml"), path)

	_, err = createManifest(dir, "Threshold", manifestOptions{})
	assert.Error(t, err, "an existing plugin must not be overwritten")

	reg := nodes.NewRegistry()
	loader := plugins.NewLoader(context.Background(), reg)
	defer loader.Close()

	n, err := loader.LoadAll(dir)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	reg.MarkAvailable()

	snap, err := reg.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "Threshold: value", snap.DisplayName("Threshold"))

	d, ok := snap.Descriptor("Threshold")
	require.True(t, ok)
	m, err := objinfo.NewExtractor(0, nil).Extract(context.Background(), "Threshold", d, snap.DisplayName("Threshold"))
	require.NoError(t, err)
	assert.Equal(t, "math", m.Category)
	assert.Equal(t, "Clamps a value.", m.Description)
	assert.Equal(t, []string{"value"}, m.OutputName)
}

func TestCreateManifestRejectsBadName(t *testing.T) {
	for _, name := range []string{"", "1abc", "../escape", "with space"} {
		_, err := createManifest(t.TempDir(), name, manifestOptions{})
		assert.Error(t, err, name)
	}
}

func TestWriteTable(t *testing.T) {
	loaded := []plugins.Plugin{
		{ID: "Broken", Kind: plugins.KindWASM},
		{ID: "Add", Kind: plugins.KindManifest},
	}
	described := map[string]objinfo.Metadata{
		"Add": {
			Name:        "Add",
			DisplayName: "Add Integers",
			Category:    "math",
			InputOrder:  objinfo.InputOrder{{Name: "required", Params: []string{"a", "b"}}},
			Output:      []string{"INT"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, loaded, described))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 4)
	assert.Contains(t, string(lines[2]), "Add Integers")
	assert.Contains(t, string(lines[2]), "INT")
	assert.Contains(t, string(lines[3]), "Broken")
	assert.Contains(t, string(lines[3]), "FAILED")
}
