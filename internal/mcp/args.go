package mcp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolArgs wraps the arguments of a tool call.
type toolArgs map[string]interface{}

// argsOf extracts the argument map from a request. A call without
// arguments yields an empty map.
func argsOf(request mcp.CallToolRequest) (toolArgs, error) {
	if request.Params.Arguments == nil {
		return toolArgs{}, nil
	}
	argsMap, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, errors.New("invalid arguments format")
	}
	return toolArgs(argsMap), nil
}

// str extracts a string argument. Required arguments must be present and
// not blank.
func (a toolArgs) str(key string, required bool) (string, error) {
	val, ok := a[key]
	if !ok {
		if required {
			return "", fmt.Errorf("%s parameter is required", key)
		}
		return "", nil
	}

	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}

	if required && strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%s cannot be empty", key)
	}

	return s, nil
}

// bind decodes the arguments into target by json tag. Input is weakly
// typed, so clients that send "10" for a number or "true" for a bool
// still bind. Unknown keys are ignored.
func (a toolArgs) bind(target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		Result:  target,
		TagName: "json",
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(map[string]interface{}(a)); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// clamp bounds v to [min, max]. A nil v yields defaultVal.
func clamp(v *int, defaultVal, min, max int) int {
	if v == nil {
		return defaultVal
	}
	if *v < min {
		return min
	}
	if *v > max {
		return max
	}
	return *v
}
