package ngram

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Stoplist is the YAML layout of a stop-word file:
//
//	terms:
//	  - the
//	  - a
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist reads stop-words from a YAML file.
func LoadStoplist(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stoplist: %w", err)
	}
	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, fmt.Errorf("parse stoplist %s: %w", path, err)
	}
	if sl.Terms == nil {
		sl.Terms = []string{}
	}
	return sl.Terms, nil
}
