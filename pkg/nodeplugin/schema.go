package nodeplugin

import (
	"bytes"
	"encoding/json"
)

type param struct {
	name string
	spec []any
}

type group struct {
	name   string
	params []param
}

// Schema builds an input schema whose groups and params keep the order they were added in.
//
//	s := nodeplugin.NewSchema().
//		Required("a", "INT").
//		Required("b", "INT", map[string]any{"default": 0}).
//		Optional("clamp", "BOOLEAN")
type Schema struct {
	groups []group
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{}
}

// Required adds a param to the required group.
func (s *Schema) Required(name, typ string, options ...map[string]any) *Schema {
	return s.Param("required", name, typ, options...)
}

// Optional adds a param to the optional group.
func (s *Schema) Optional(name, typ string, options ...map[string]any) *Schema {
	return s.Param("optional", name, typ, options...)
}

// Hidden adds a param to the hidden group.
func (s *Schema) Hidden(name, typ string) *Schema {
	return s.Param("hidden", name, typ)
}

// Param adds a param to groupName, creating the group on first use. The param's spec is
// [typ] or [typ, options].
func (s *Schema) Param(groupName, name, typ string, options ...map[string]any) *Schema {
	spec := []any{typ}
	if len(options) > 0 && options[0] != nil {
		spec = append(spec, options[0])
	}

	for i := range s.groups {
		if s.groups[i].name == groupName {
			s.groups[i].params = append(s.groups[i].params, param{name: name, spec: spec})
			return s
		}
	}
	s.groups = append(s.groups, group{name: groupName, params: []param{{name: name, spec: spec}}})

	return s
}

// MarshalJSON encodes the schema as an ordered JSON object.
func (s *Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range s.groups {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, g.name); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		for j, p := range g.params {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(&buf, p.name); err != nil {
				return nil, err
			}
			spec, err := json.Marshal(p.spec)
			if err != nil {
				return nil, err
			}
			buf.Write(spec)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')

	return nil
}
