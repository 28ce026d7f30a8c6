package objinfo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// InputParam is one named input parameter with its raw type/spec payload.
type InputParam struct {
	Name string
	Spec json.RawMessage
}

// InputGroup is an ordered group of parameters such as "required" or "optional".
type InputGroup struct {
	Name   string
	Params []InputParam
}

// InputSchema is the ordered input description of a node.
// It encodes as a JSON object of objects, keeping declaration order.
type InputSchema []InputGroup

// ParseInputSchema decodes a JSON object of parameter groups keeping key order.
func ParseInputSchema(raw json.RawMessage) (InputSchema, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, fmt.Errorf("input schema: %w", err)
	}

	schema := InputSchema{}
	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return nil, fmt.Errorf("input schema: %w", err)
		}
		group := InputGroup{Name: name, Params: []InputParam{}}
		if err := expectDelim(dec, '{'); err != nil {
			return nil, fmt.Errorf("input group %q: %w", name, err)
		}
		for dec.More() {
			param, err := readKey(dec)
			if err != nil {
				return nil, fmt.Errorf("input group %q: %w", name, err)
			}
			var spec json.RawMessage
			if err := dec.Decode(&spec); err != nil {
				return nil, fmt.Errorf("input %s.%s: %w", name, param, err)
			}
			group.Params = append(group.Params, InputParam{Name: param, Spec: spec})
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, fmt.Errorf("input group %q: %w", name, err)
		}
		schema = append(schema, group)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, fmt.Errorf("input schema: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("input schema: trailing data")
	}

	return schema, nil
}

// Order returns the parameter names of every group.
func (s InputSchema) Order() InputOrder {
	order := make(InputOrder, 0, len(s))
	for _, g := range s {
		names := make([]string, 0, len(g.Params))
		for _, p := range g.Params {
			names = append(names, p.Name)
		}
		order = append(order, GroupOrder{Name: g.Name, Params: names})
	}

	return order
}

// MarshalJSON encodes the schema as an ordered JSON object.
func (s InputSchema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, g.Name); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		for j, p := range g.Params {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(&buf, p.Name); err != nil {
				return nil, err
			}
			if len(p.Spec) == 0 {
				buf.WriteString("null")
				continue
			}
			if err := json.Compact(&buf, p.Spec); err != nil {
				return nil, fmt.Errorf("input %s.%s: %w", g.Name, p.Name, err)
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an ordered JSON object.
func (s *InputSchema) UnmarshalJSON(data []byte) error {
	parsed, err := ParseInputSchema(data)
	if err != nil {
		return err
	}
	*s = parsed

	return nil
}

// GroupOrder lists the parameter names of one input group.
type GroupOrder struct {
	Name   string
	Params []string
}

// InputOrder is the ordered list of parameter names per group.
type InputOrder []GroupOrder

// MarshalJSON encodes the order as a JSON object of string arrays.
func (o InputOrder) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, g.Name); err != nil {
			return nil, err
		}
		params := g.Params
		if params == nil {
			params = []string{}
		}
		names, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		buf.Write(names)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of string arrays keeping key order.
func (o *InputOrder) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return fmt.Errorf("input order: %w", err)
	}
	order := InputOrder{}
	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return fmt.Errorf("input order: %w", err)
		}
		var params []string
		if err := dec.Decode(&params); err != nil {
			return fmt.Errorf("input order %q: %w", name, err)
		}
		order = append(order, GroupOrder{Name: name, Params: params})
	}
	if err := expectDelim(dec, '}'); err != nil {
		return fmt.Errorf("input order: %w", err)
	}
	*o = order

	return nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}

	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}

	return key, nil
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
