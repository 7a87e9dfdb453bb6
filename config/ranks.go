// config/ranks.go
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"journey-progression/progression"
)

// rankFile is the versioned on-disk rank table.
//
//	version: 1
//	ranks:
//	  - name: novice
//	    min_xp: 0
//	  - name: explorer
//	    min_xp: 100
type rankFile struct {
	Version int                          `yaml:"version" validate:"min=1"`
	Ranks   []progression.RankDefinition `yaml:"ranks" validate:"required,min=1,dive"`
}

var rankValidate = validator.New()

// LoadRankTable returns the default table when path is empty, otherwise the
// table described by the YAML file. Any invariant violation is an error that
// should stop the process.
func LoadRankTable(path string) (*progression.RankTable, error) {
	if path == "" {
		return progression.DefaultRankTable(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rank table %s: %w", path, err)
	}
	defer f.Close()
	return ParseRankTable(f)
}

// ParseRankTable decodes and validates a rank table document.
func ParseRankTable(r io.Reader) (*progression.RankTable, error) {
	var doc rankFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", progression.ErrConfigInvariant, err)
	}
	if err := rankValidate.Struct(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", progression.ErrConfigInvariant, err)
	}
	return progression.NewRankTable(doc.Ranks)
}
