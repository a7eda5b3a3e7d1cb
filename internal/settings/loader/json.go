package loader

import (
	"encoding/json"
	"errors"

	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"
)

// parseJSON parses plain JSON data into a map.
func parseJSON(source string, data []byte) (map[string]any, error) {
	if !gjson.ValidBytes(data) {
		return nil, newParseError(FormatJSON, source, errors.New("invalid JSON"))
	}

	var config map[string]any
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, newParseError(FormatJSON, source, err)
	}

	return config, nil
}

// parseJSONC parses JSON-with-comments data into a map. Comments and
// trailing commas are stripped before normal JSON parsing.
func parseJSONC(source string, data []byte) (map[string]any, error) {
	plain := jsonc.ToJSON(data)

	if !gjson.ValidBytes(plain) {
		return nil, newParseError(FormatJSONC, source, errors.New("invalid JSON after comment stripping"))
	}

	var config map[string]any
	if err := json.Unmarshal(plain, &config); err != nil {
		return nil, newParseError(FormatJSONC, source, err)
	}

	return config, nil
}

// StripComments converts JSONC bytes to plain JSON, preserving byte offsets.
// Callers that edit raw .jsonc files use this before structural edits.
func StripComments(data []byte) []byte {
	return jsonc.ToJSON(data)
}
