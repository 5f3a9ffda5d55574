package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LoadModels reads all *.json model definitions from dir and populates the
// registry. Files are loaded in name order so reloads are deterministic.
func LoadModels(dir string, reg *Registry) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read models dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var models []*Model
	for _, name := range names {
		m, err := loadModelFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		models = append(models, m)
	}

	reg.LoadModels(models)
	return nil
}

// LoadDescriptors reads all *.json descriptor definitions from dir and
// registers them. The directory is optional; a missing one means every
// type uses the default descriptor synthesized from its model.
func LoadDescriptors(dir string, reg *Registry) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read descriptors dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read descriptor file %s: %w", path, err)
		}
		var d Descriptor
		if err := json.Unmarshal(data, &d); err != nil {
			return fmt.Errorf("parse descriptor file %s: %w", path, err)
		}
		if err := reg.Register(&d); err != nil {
			return fmt.Errorf("descriptor file %s: %w", path, err)
		}
	}
	return nil
}

func loadModelFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file %s: %w", path, err)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model file %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("model file %s: %w", path, err)
	}
	return &m, nil
}
