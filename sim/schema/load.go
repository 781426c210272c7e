package schema

import (
	"encoding/json"
	"fmt"
	"os"
)

// ParseModel decodes raw JSON bytes and validates the result.
// Decode errors are wrapped; validation errors come back as
// ValidationErrors, same as Validate.
func ParseModel(data []byte) (*ProcessModel, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing process model: %w", err)
	}
	return Validate(doc)
}

// LoadModelFile reads a process model from a JSON file and validates it.
func LoadModelFile(path string) (*ProcessModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading process model: %w", err)
	}
	return ParseModel(data)
}
