package cartconf

import (
	"encoding/json"

	"github.com/mitchellh/mapstructure"
)

// Decode maps a single variant's parameter dict onto v, a pointer to a
// struct or map. String values are weakly converted to the destination
// field's type (so `x = 1` decodes cleanly into an int field), mirroring
// how the teacher's own unmarshaler accepted loosely-typed source values.
// Struct fields are matched by their `mapstructure` tag, falling back to
// their name, exactly as the dict's own keys are plain identifiers.
func Decode(dict map[string]string, v any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           v,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(dict)
}

// DecodeAll decodes every variant in a stream-of-dicts Parse call onto a
// slice of v's element type, appending one decoded element per dict. v
// must be a non-nil pointer to a slice.
func DecodeAll(dicts []map[string]string, v any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           v,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(dicts)
}

// MarshalJSON renders a variant dict as JSON, for callers of the public
// API (or the CLI) that want a serialized form rather than the raw map.
func MarshalJSON(dict map[string]string) ([]byte, error) {
	return json.Marshal(dict)
}

// MarshalJSONIndent is MarshalJSON with indentation, used by verbose CLI
// output and tests that want to eyeball a variant.
func MarshalJSONIndent(dict map[string]string, prefix, indent string) ([]byte, error) {
	return json.MarshalIndent(dict, prefix, indent)
}
