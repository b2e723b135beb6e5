package plugin

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// DecodeOptions decodes manifest options into out (a pointer to a struct with
// mapstructure tags).
//
// Durations ("1s"), RFC 3339 timestamps and types implementing
// encoding.TextUnmarshaler (such as datasource.NexusDataType) are decoded
// from strings. Unknown keys are rejected.
func DecodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
			mapstructure.TextUnmarshallerHookFunc(),
		),
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(options); err != nil {
		return fmt.Errorf("failed to decode plugin options: %w", err)
	}

	return nil
}
