package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type aliasFile struct {
	Aliases map[string]string `yaml:"aliases"`
}

// LoadDomainAliases reads an alias table of the form:
//
//	aliases:
//	  go.example.test: sho.rt
//
// Hosts and canonical domains are lowercased.
func LoadDomainAliases(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file aliasFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	out := make(map[string]string, len(file.Aliases))
	for alias, canonical := range file.Aliases {
		alias = strings.ToLower(strings.TrimSpace(alias))
		canonical = strings.ToLower(strings.TrimSpace(canonical))
		if alias == "" || canonical == "" {
			return nil, fmt.Errorf("parse %s: empty alias entry", path)
		}
		out[alias] = canonical
	}
	return out, nil
}
