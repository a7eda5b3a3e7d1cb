package loader

import (
	"github.com/pelletier/go-toml/v2"
)

// parseTOML parses TOML data into a map.
func parseTOML(source string, data []byte) (map[string]any, error) {
	var config map[string]any
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, newParseError(FormatTOML, source, err)
	}

	return config, nil
}
