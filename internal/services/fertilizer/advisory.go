package fertilizer

import (
	_ "embed"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/LeonardoBeccarini/harvestify/internal/model/entities"
	"github.com/microcosm-cc/bluemonday"
	"gopkg.in/yaml.v3"
)

//go:embed advisory.yaml
var defaultAdvisory []byte

var ErrAdvisoryNotFound = errors.New("advisory not found")

var lineBreak = regexp.MustCompile(`(?i)<br\s*/?>`)

// Advice is the cleaned advisory text for one key.
type Advice struct {
	Key   entities.AdvisoryKey `json:"key"`
	Title string               `json:"title"`
	Lines []string             `json:"lines"`
	Plain string               `json:"plain"`
}

// Catalogue maps advisory keys to their raw HTML snippets.
type Catalogue struct {
	raw    map[entities.AdvisoryKey]string
	policy *bluemonday.Policy
}

// LoadCatalogue parses a YAML mapping of key to HTML text and checks every
// advisory key is present.
func LoadCatalogue(data []byte) (*Catalogue, error) {
	raw := map[entities.AdvisoryKey]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse advisory catalogue: %w", err)
	}
	for _, k := range entities.AdvisoryKeys {
		if strings.TrimSpace(raw[k]) == "" {
			return nil, fmt.Errorf("advisory catalogue: missing %s", k)
		}
	}
	return &Catalogue{raw: raw, policy: bluemonday.StrictPolicy()}, nil
}

// DefaultCatalogue parses the embedded advisory texts.
func DefaultCatalogue() (*Catalogue, error) {
	return LoadCatalogue(defaultAdvisory)
}

// Advice splits the text on <br> tags and strips the remaining markup.
func (c *Catalogue) Advice(key entities.AdvisoryKey) (Advice, error) {
	text, ok := c.raw[key]
	if !ok {
		return Advice{}, fmt.Errorf("%w: %q", ErrAdvisoryNotFound, key)
	}
	var lines []string
	for _, part := range lineBreak.Split(text, -1) {
		if s := c.strip(part); s != "" {
			lines = append(lines, s)
		}
	}
	return Advice{
		Key:   key,
		Title: Title(key),
		Lines: lines,
		Plain: strings.Join(lines, " "),
	}, nil
}

func (c *Catalogue) strip(s string) string {
	// StrictPolicy escapes entities; the templates escape again on output.
	s = html.UnescapeString(c.policy.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

// Title returns e.g. "Suggestions for High Nitrogen" for NHigh.
func Title(key entities.AdvisoryKey) string {
	k := string(key)
	if len(k) < 2 {
		return "Suggestions"
	}
	level := "Low"
	if strings.HasSuffix(k, "High") {
		level = "High"
	}
	return fmt.Sprintf("Suggestions for %s %s", level, entities.Nutrient(k[:1]).Name())
}
