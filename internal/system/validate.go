package system

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/relaycore/relay/pkg/models"
)

// schemaCache compiles each tool's input_schema at most once, keyed by its
// raw bytes. Tool descriptors are static for the process lifetime of a
// System, so the cache never needs eviction.
var schemaCache sync.Map

func compileSchema(schema json.RawMessage) (*jsonschema.Schema, error) {
	key := string(schema)
	if cached, ok := schemaCache.Load(key); ok {
		return cached.(*jsonschema.Schema), nil
	}
	compiled, err := jsonschema.CompileString("tool.input_schema.json", key)
	if err != nil {
		return nil, err
	}
	schemaCache.Store(key, compiled)
	return compiled, nil
}

// validateArguments checks call.Arguments against tool.InputSchema,
// returning a ToolErrorInvalidParameters describing the first defect.
func validateArguments(tool models.Tool, call models.ToolCall) *models.ToolError {
	schema, err := compileSchema(tool.InputSchema)
	if err != nil {
		return models.NewToolErrorFromCause(models.ToolErrorInvalidParameters,
			fmt.Sprintf("tool %q has an invalid input_schema", tool.Name), err)
	}

	var decoded any
	if err := json.Unmarshal(call.Arguments, &decoded); err != nil {
		return models.NewToolErrorFromCause(models.ToolErrorInvalidParameters,
			"arguments are not valid JSON", err)
	}

	if err := schema.Validate(decoded); err != nil {
		return models.NewToolErrorFromCause(models.ToolErrorInvalidParameters,
			fmt.Sprintf("arguments for %q do not match its input_schema", call.Name), err)
	}
	return nil
}
