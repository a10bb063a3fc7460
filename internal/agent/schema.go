package agent

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemaCache memoizes compiled schemas by their raw JSON text, shared by
// tool-argument validation and output-schema validation — both compile
// schemas that are static for the life of a ToolRegistry/AgentConfig, so
// there is no benefit to per-call-site caches.
var schemaCache sync.Map

func compileSchema(raw json.RawMessage) (*jsonschema.Schema, error) {
	key := string(raw)
	if cached, ok := schemaCache.Load(key); ok {
		return cached.(*jsonschema.Schema), nil
	}
	compiled, err := jsonschema.CompileString("agent.schema.json", key)
	if err != nil {
		return nil, err
	}
	schemaCache.Store(key, compiled)
	return compiled, nil
}

// validateAgainstSchema checks payload (raw JSON) against schema (a raw
// JSON Schema document). A nil or empty schema always passes — schemas are
// opt-in, not a default requirement.
func validateAgainstSchema(schema json.RawMessage, payload []byte) error {
	if len(schema) == 0 {
		return nil
	}
	compiled, err := compileSchema(schema)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := compiled.Validate(decoded); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}

// SchemaError reports a payload that failed JSON Schema validation — either
// a tool call's arguments against the tool's declared Schema(), or an LLM's
// response against an AgentConfig.OutputSchema.
type SchemaError struct {
	// Subject identifies what was validated ("tool:<name>" or "output").
	Subject string
	Cause   error
}

func (e *SchemaError) Error() string { return fmt.Sprintf("schema(%s): %v", e.Subject, e.Cause) }
func (e *SchemaError) Unwrap() error { return e.Cause }
