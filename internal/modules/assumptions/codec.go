package assumptions

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Parse decodes a YAML assumption document and validates it. The raw bytes
// are what the repository persists, so a set can always be re-exported
// exactly as it was imported.
func Parse(data []byte) (*Set, error) {
	var set Set
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse assumption document: %w", err)
	}
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("invalid assumption document: %w", err)
	}
	return &set, nil
}

// Encode renders a set back to YAML. Used for exports of sets that were
// created through the API rather than imported from a file.
func Encode(set *Set) ([]byte, error) {
	data, err := yaml.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("failed to encode assumption document: %w", err)
	}
	return data, nil
}
