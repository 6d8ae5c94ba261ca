package grading

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type scaleFile struct {
	Bands []GradeBand `yaml:"bands"`
}

// LoadScale reads a YAML band table from r and validates it.
//
//	bands:
//	  - {low: 80, high: 100, letter: "A+", description: Excellent}
//	  - ...
func LoadScale(r io.Reader) (*Scale, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var sf scaleFile
	if err := dec.Decode(&sf); err != nil {
		if err == io.EOF {
			return nil, newConfigError("empty scale file")
		}
		return nil, &ConfigurationError{Reason: "decoding scale file: " + err.Error()}
	}
	return NewScale(sf.Bands)
}

// LoadScaleFile loads the scale at path, or returns the DefaultScale when path is empty.
func LoadScaleFile(path string) (*Scale, error) {
	if path == "" {
		return DefaultScale(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening scale file")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer f.Close()

	return LoadScale(f)
}
