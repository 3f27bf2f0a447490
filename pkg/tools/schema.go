package tools

import (
	"github.com/invopop/jsonschema"
)

// GenerateSchema derives the JSON Schema of a tool's input struct.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// Decode converts loosely typed args into the tool's input struct.
func Decode[T any](args Args) (T, error) {
	var in T
	b, err := json.Marshal(args)
	if err != nil {
		return in, err
	}
	err = json.Unmarshal(b, &in)
	return in, err
}
