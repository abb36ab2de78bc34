package activity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aulaplay/aula/internal/domain"
	"gopkg.in/yaml.v3"
)

// ParseDocument decodes a raw YAML activity document. YAML is a superset
// of JSON, so JSON bodies parse too; use ParseJSON when the source is
// known to be JSON for stricter errors.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse activity document: %w", err)
	}
	return &doc, nil
}

// ParseJSON decodes a raw JSON activity document.
func ParseJSON(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse activity document: %w", err)
	}
	return &doc, nil
}

// LoadFile reads, parses, and validates one activity file. The extension
// picks the codec: .json uses the JSON decoder, everything else YAML.
func LoadFile(path string) (domain.Activity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read activity file: %w", err)
	}

	var doc *Document
	if strings.EqualFold(filepath.Ext(path), ".json") {
		doc, err = ParseJSON(data)
	} else {
		doc, err = ParseDocument(data)
	}
	if err != nil {
		return nil, err
	}

	return Validate(doc)
}
