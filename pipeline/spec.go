package pipeline

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"
)

// Spec is a pipeline definition as written in its YAML file.
type Spec struct {
	Name     string `yaml:"name"`
	Schedule string `yaml:"schedule,omitempty"`
	Tasks    []Task `yaml:"tasks"`
}

type Task struct {
	Name  string           `yaml:"name"`
	Steps []map[string]any `yaml:"steps"`
}

// QueryFiles lists the SQL files the spec's steps reference, in step
// order. These travel alongside the YAML when the pipeline is created.
func (s *Spec) QueryFiles() []string {
	files := []string{}
	for _, task := range s.Tasks {
		for _, step := range task.Steps {
			if qf, ok := step["query_file"].(string); ok && qf != "" {
				files = append(files, qf)
			}
		}
	}
	return files
}

// SpecFromFile reads and validates a pipeline definition.
func SpecFromFile(path string) (*Spec, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	spec := &Spec{}
	if err := yaml.Unmarshal(buf, spec); err != nil {
		return nil, fmt.Errorf("malformed pipeline spec %s: %w", path, err)
	}
	if len(spec.Tasks) == 0 {
		return nil, fmt.Errorf("pipeline spec %s has no tasks", path)
	}
	return spec, nil
}
