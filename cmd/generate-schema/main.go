// Command generate-schema writes the JSON schema of the playground
// configuration file, for editor completion of config.yaml.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/marmos91/playground/pkg/config"
)

const defaultOutput = "config.schema.json"

func main() {
	output := defaultOutput
	if len(os.Args) > 1 {
		output = os.Args[1]
	}

	if err := generate(output); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("JSON schema written to %s\n", output)
}

func generate(output string) error {
	schemaJSON, err := schemaFor(&config.Config{})
	if err != nil {
		return err
	}
	return os.WriteFile(output, schemaJSON, 0644)
}

// schemaFor reflects v using its yaml tags, which are the keys users write.
func schemaFor(v any) ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		FieldNameTag:              "yaml",
	}

	schema := reflector.Reflect(v)
	schema.Title = "Playground Configuration"
	schema.Description = "Configuration schema for the playground data source agent"
	schema.Version = "1.0.0"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}
