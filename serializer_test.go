package cartconf

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type decodeTarget struct {
	Name string `mapstructure:"name"`
	X    int    `mapstructure:"x"`
}

func TestDecodeWeaklyTypesStringValues(t *testing.T) {
	var d decodeTarget
	err := Decode(map[string]string{"name": "a", "x": "42"}, &d)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if d.Name != "a" || d.X != 42 {
		t.Errorf("got %+v", d)
	}
}

func TestDecodeAllAppendsOnePerDict(t *testing.T) {
	dicts := []map[string]string{
		{"name": "a", "x": "1"},
		{"name": "b", "x": "2"},
	}
	var out []decodeTarget
	if err := DecodeAll(dicts, &out); err != nil {
		t.Fatalf("DecodeAll error: %v", err)
	}
	want := []decodeTarget{{Name: "a", X: 1}, {Name: "b", X: 2}}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("DecodeAll result mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalJSONRoundTrips(t *testing.T) {
	dict := map[string]string{"name": "a", "x": "1"}
	data, err := MarshalJSON(dict)
	if err != nil {
		t.Fatalf("MarshalJSON error: %v", err)
	}
	var back map[string]string
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("json.Unmarshal error: %v", err)
	}
	if back["name"] != "a" || back["x"] != "1" {
		t.Fatalf("got %+v", back)
	}
}

func TestMarshalJSONIndentProducesIndentedOutput(t *testing.T) {
	dict := map[string]string{"name": "a"}
	data, err := MarshalJSONIndent(dict, "", "  ")
	if err != nil {
		t.Fatalf("MarshalJSONIndent error: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected non-empty output")
	}
	want, _ := json.MarshalIndent(dict, "", "  ")
	if string(data) != string(want) {
		t.Errorf("got %s, want %s", data, want)
	}
}
