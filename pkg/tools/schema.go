package tools

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// reflectSchema reflects a Go struct (passed as a pointer, e.g. &echoArgs{})
// into the map[string]any shape protocol.Tool.InputSchema expects. Used by
// the bundled demo tools instead of hand-written schema literals - the
// schema is derived once at registration time and never touched again.
func reflectSchema(v any) map[string]any {
	r := &jsonschema.Reflector{
		DoNotReference:             true,
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := r.Reflect(v)
	b, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return map[string]any{"type": "object"}
	}
	delete(out, "$schema")
	delete(out, "$id")
	return out
}
