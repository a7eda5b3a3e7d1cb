package loader

import (
	"gopkg.in/yaml.v3"
)

// parseYAML parses YAML data into a map. A non-mapping root fails the
// unmarshal; an empty document yields a nil map, which callers treat
// the same as an absent file.
func parseYAML(source string, data []byte) (map[string]any, error) {
	var config map[string]any
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, newParseError(FormatYAML, source, err)
	}

	return config, nil
}
