// Package workflow loads the per-workflow schema requirements and
// publish-step ordering that drive the object and publish services.
package workflow

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/CSCfi/metadata-submitter-go/store"
)

//go:embed workflow.yaml
var defaultConfigFS embed.FS

// SchemaRequirement is one schema's place in a workflow: whether it is
// mandatory, whether a submission may attach more than one object of
// that type, and the other schemas it depends on.
type SchemaRequirement struct {
	Name                 string   `yaml:"name"`
	Required             bool     `yaml:"required"`
	AllowMultipleObjects bool     `yaml:"allowMultipleObjects"`
	Requires             []string `yaml:"requires"`
	RequiresOr           []string `yaml:"requires_or"`
}

// PublishStep is one ordered step of a workflow's publish pipeline.
type PublishStep struct {
	Name           string   `yaml:"name"`
	Service        string   `yaml:"service"`
	Requires       []string `yaml:"requires"`
	IdempotencyKey string   `yaml:"idempotency_key"`
}

// Definition is a single workflow's full configuration.
type Definition struct {
	Name         store.Workflow      `yaml:"name"`
	Schemas      []SchemaRequirement `yaml:"schemas"`
	PublishSteps []PublishStep       `yaml:"publish_steps"`
}

type fileFormat struct {
	Definitions []Definition `yaml:"definitions"`
}

// Config is the immutable set of workflow definitions loaded at startup.
type Config struct {
	definitions map[store.Workflow]*Definition
}

// LoadDefault loads the built-in workflow.yaml shipped with the binary.
func LoadDefault() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("workflow.yaml")
	if err != nil {
		return nil, fmt.Errorf("workflow: read embedded config: %w", err)
	}
	return parse(data)
}

// Load reads a workflow config from path, overriding the embedded default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("workflow: read %s: %w", path, err)
	}
	return parse(data)
}

func parse(data []byte) (*Config, error) {
	var ff fileFormat
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("workflow: parse config: %w", err)
	}
	c := &Config{definitions: make(map[store.Workflow]*Definition, len(ff.Definitions))}
	for i := range ff.Definitions {
		d := ff.Definitions[i]
		c.definitions[d.Name] = &d
	}
	return c, nil
}

// For returns the definition for a workflow name.
func (c *Config) For(wf store.Workflow) (*Definition, bool) {
	d, ok := c.definitions[wf]
	return d, ok
}

// RequirementFor looks up a schema's requirement entry within this
// definition.
func (d *Definition) RequirementFor(schemaName string) (*SchemaRequirement, bool) {
	for i := range d.Schemas {
		if d.Schemas[i].Name == schemaName {
			return &d.Schemas[i], true
		}
	}
	return nil, false
}

// CheckGate evaluates the publish gate's schema-requirement clauses
// (required schemas present, multiplicity, requires/requires_or edges)
// given a count of attached objects per schema name. It returns a
// human-readable problem per violation; an empty result means the gate
// passes on this dimension.
func (d *Definition) CheckGate(presentSchemas map[string]int) []string {
	var problems []string
	for _, req := range d.Schemas {
		count := presentSchemas[req.Name]
		if req.Required && count == 0 {
			problems = append(problems, fmt.Sprintf("missing required schema %q", req.Name))
			continue
		}
		if count == 0 {
			continue
		}
		if !req.AllowMultipleObjects && count > 1 {
			problems = append(problems, fmt.Sprintf("schema %q does not allow multiple objects (got %d)", req.Name, count))
		}
		for _, dep := range req.Requires {
			if presentSchemas[dep] == 0 {
				problems = append(problems, fmt.Sprintf("%q requires %q", req.Name, dep))
			}
		}
		if len(req.RequiresOr) > 0 {
			satisfied := false
			for _, dep := range req.RequiresOr {
				if presentSchemas[dep] > 0 {
					satisfied = true
					break
				}
			}
			if !satisfied {
				problems = append(problems, fmt.Sprintf("%q requires one of %v", req.Name, req.RequiresOr))
			}
		}
	}
	return problems
}

// RequiresFiles reports whether this workflow tracks file ingestion at
// all, i.e. whether the publish gate's file checks apply.
func (d *Definition) RequiresFiles() bool {
	return d.Name == store.WorkflowFEGA || d.Name == store.WorkflowBP
}
