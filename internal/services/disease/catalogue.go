package disease

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed details.yaml
var defaultDetails []byte

// NoDetails is shown when a class has no catalogue entry.
const NoDetails = "No details available"

// Details maps a class label to its description.
type Details map[string]string

// LoadDetails parses a YAML mapping of label to description.
func LoadDetails(data []byte) (Details, error) {
	d := Details{}
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse disease details: %w", err)
	}
	for k, v := range d {
		d[k] = strings.TrimSpace(v)
	}
	return d, nil
}

// DefaultDetails returns the embedded catalogue.
func DefaultDetails() Details {
	d, err := LoadDetails(defaultDetails)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Details) For(label string) string {
	if s, ok := d[label]; ok && s != "" {
		return s
	}
	return NoDetails
}
