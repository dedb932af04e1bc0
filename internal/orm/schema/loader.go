package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type modelsFile struct {
	Models []*ModelDeclaration `yaml:"models"`
}

// LoadFile reads model declarations from a YAML file into the registry
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read models file: %w", err)
	}
	return r.Load(bytes.NewReader(data))
}

// Load decodes model declarations from YAML and registers each of them
func (r *Registry) Load(in io.Reader) error {
	var file modelsFile

	dec := yaml.NewDecoder(in)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrInvalidDeclaration, err)
	}

	for _, decl := range file.Models {
		if err := r.Register(decl); err != nil {
			return err
		}
	}
	return nil
}
