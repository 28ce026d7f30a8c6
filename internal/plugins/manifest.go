package plugins

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/andrei-cloud/go_nodehost/internal/nodes"
	"gopkg.in/yaml.v3"
)

// Manifest declares a node whose metadata is fixed.
//
//	name: ImageBlend
//	display_name: Image Blend
//	category: image/postprocessing
//	input:
//	  required:
//	    image1: [IMAGE]
//	    image2: [IMAGE]
//	    blend_factor: [FLOAT, {default: 0.5, min: 0, max: 1}]
//	output: [IMAGE]
//
// Absent optional keys leave the matching capability unexposed.
type Manifest struct {
	Name        string    `yaml:"name"`
	DisplayName string    `yaml:"display_name"`
	Input       yaml.Node `yaml:"input"`
	Output      []string  `yaml:"output"`

	OutputIsList   *[]bool   `yaml:"output_is_list"`
	OutputName     *[]string `yaml:"output_name"`
	OutputNode     *bool     `yaml:"output_node"`
	OutputTooltips *[]string `yaml:"output_tooltips"`
	Deprecated     *bool     `yaml:"deprecated"`
	Experimental   *bool     `yaml:"experimental"`
	Description    *string   `yaml:"description"`
	Category       *string   `yaml:"category"`
	OriginModule   *string   `yaml:"origin_module"`
}

// ParseManifest decodes a YAML manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	return &m, nil
}

// Descriptor returns a static descriptor for the manifest. The input mapping keeps the
// order it has in the file.
func (m *Manifest) Descriptor() (*nodes.Static, error) {
	var inputs json.RawMessage
	if m.Input.Kind != 0 {
		var buf bytes.Buffer
		if err := writeNode(&buf, &m.Input); err != nil {
			return nil, fmt.Errorf("manifest input: %w", err)
		}
		inputs = buf.Bytes()
	}

	d := nodes.NewStatic(inputs, m.Output)

	optional := []struct {
		c   nodes.Capability
		set bool
		v   any
	}{
		{nodes.OutputIsList, m.OutputIsList != nil, m.OutputIsList},
		{nodes.ReturnNames, m.OutputName != nil, m.OutputName},
		{nodes.OutputNode, m.OutputNode != nil, m.OutputNode},
		{nodes.OutputTooltips, m.OutputTooltips != nil, m.OutputTooltips},
		{nodes.Deprecated, m.Deprecated != nil, m.Deprecated},
		{nodes.Experimental, m.Experimental != nil, m.Experimental},
		{nodes.Description, m.Description != nil, m.Description},
		{nodes.Category, m.Category != nil, m.Category},
		{nodes.OriginModule, m.OriginModule != nil, m.OriginModule},
	}
	for _, o := range optional {
		if !o.set {
			continue
		}
		if err := d.Set(o.c, o.v); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// writeNode writes n as JSON, keeping mapping keys in document order.
func writeNode(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeNode(buf, n.Content[0])

	case yaml.AliasNode:
		return writeNode(buf, n.Alias)

	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: mapping key must be a scalar", key.Line)
			}
			k, err := json.Marshal(key.Value)
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			if err := writeNode(buf, n.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')

	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeNode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')

	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		out, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		buf.Write(out)

	default:
		return errors.New("unsupported YAML node")
	}

	return nil
}
