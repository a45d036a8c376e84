package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/county-aqi-risk/internal/domain"
)

// exclusionFile is the YAML layout of EXCLUSIONS_FILE:
//
//	exclusions:
//	  - state: California
//	    county: Mono
type exclusionFile struct {
	Exclusions []domain.CountyRef `yaml:"exclusions"`
}

// LoadExclusions reads a display exclusion list. An empty list is valid and
// disables exclusion.
func LoadExclusions(path string) (domain.ExclusionList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read exclusions: %w", err)
	}

	var f exclusionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse exclusions %s: %w", path, err)
	}

	list := make(domain.ExclusionList, 0, len(f.Exclusions))
	for i, ref := range f.Exclusions {
		if strings.TrimSpace(ref.State) == "" || strings.TrimSpace(ref.County) == "" {
			return nil, fmt.Errorf("exclusion %d: %w", i, errIncompleteRef)
		}
		list = append(list, ref)
	}
	return list, nil
}

var errIncompleteRef = errors.New("state and county are both required")
