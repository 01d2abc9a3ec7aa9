package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Property is one key/value pair from a filter's markdown_config block.
// Values are strings, numbers, bools, nil, arrays, or nested Properties.
type Property struct {
	Key   string
	Value any
}

// Properties preserves the configuration order of markdown_config keys,
// which ordinary map decoding would lose.
type Properties []Property

// UnmarshalJSON decodes a JSON object into Properties, keeping the
// object's key order. Nested objects decode recursively.
func (p *Properties) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	v, err := decodeOrdered(dec)
	if err != nil {
		return fmt.Errorf("decoding markdown_config: %w", err)
	}

	props, ok := v.(Properties)
	if !ok {
		return fmt.Errorf("markdown_config must be a JSON object, got %T", v)
	}

	*p = props
	return nil
}

// decodeOrdered reads one JSON value from dec, decoding objects into
// ordered Properties instead of maps.
func decodeOrdered(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		// string, float64, bool, or nil
		return tok, nil
	}

	switch delim {
	case '{':
		var props Properties
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("expected object key, got %v", keyTok)
			}

			val, err := decodeOrdered(dec)
			if err != nil {
				return nil, err
			}
			props = append(props, Property{Key: key, Value: val})
		}
		// closing '}'
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return props, nil

	case '[':
		var items []any
		for dec.More() {
			val, err := decodeOrdered(dec)
			if err != nil {
				return nil, err
			}
			items = append(items, val)
		}
		// closing ']'
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return items, nil
	}

	return nil, fmt.Errorf("unexpected delimiter %v", delim)
}
