package schemacatalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// entry holds everything the catalog knows about one object_type.
type entry struct {
	objectType  string
	provider    string
	title       string
	description string
	priority    int
	xmlRoot     string
	splitXPath  string

	raw      *jsonschema.Schema
	resolved *jsonschema.Resolved
	xsd      *xsdSchema
}

// Catalog is the immutable set of schemas loaded at startup. It is safe
// for concurrent read access from every request goroutine; nothing ever
// mutates it after Load returns.
type Catalog struct {
	entries map[string]*entry
}

// schemaMeta is the subset of JSON Schema vocabulary this catalog reads
// for cataloging purposes, beyond validation itself.
type schemaMeta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    int    `json:"x-priority"`
	XMLRoot     string `json:"x-xml-root"`
	SplitXPath  string `json:"x-split-xpath"`
}

// Load reads every <object_type>.json and <provider>.<object_type>.xsd
// (or bare <object_type>.xsd) pair from dir and builds a Catalog.
func Load(dir string) (*Catalog, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("schemacatalog: read %s: %w", dir, err)
	}

	c := &Catalog{entries: make(map[string]*entry)}

	for _, f := range files {
		if f.IsDir() {
			continue
		}
		name := f.Name()
		switch {
		case strings.HasSuffix(name, ".json"):
			if err := c.loadJSON(dir, name); err != nil {
				return nil, err
			}
		case strings.HasSuffix(name, ".xsd"):
			if err := c.loadXSD(dir, name); err != nil {
				return nil, err
			}
		}
	}

	for objectType, e := range c.entries {
		if e.raw == nil {
			return nil, fmt.Errorf("schemacatalog: %s has an xsd but no JSON schema", objectType)
		}
	}

	return c, nil
}

// parseStem splits a schema file's base name (without extension) into an
// optional provider prefix and the object_type, per the "bare stem,
// optionally dot-prefixed by provider" matching rule.
func parseStem(base string) (provider, objectType string) {
	if i := strings.Index(base, "."); i >= 0 {
		return base[:i], base[i+1:]
	}
	return "", base
}

func (c *Catalog) loadJSON(dir, name string) error {
	base := strings.TrimSuffix(name, ".json")
	provider, objectType := parseStem(base)

	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("schemacatalog: read %s: %w", name, err)
	}

	schema := new(jsonschema.Schema)
	if err := json.Unmarshal(data, schema); err != nil {
		return fmt.Errorf("schemacatalog: parse %s: %w", name, err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("schemacatalog: resolve %s: %w", name, err)
	}

	var meta schemaMeta
	_ = json.Unmarshal(data, &meta)

	e := c.get(objectType)
	if provider != "" {
		e.provider = provider
	}
	e.title = meta.Title
	e.description = meta.Description
	e.priority = meta.Priority
	e.xmlRoot = meta.XMLRoot
	if e.xmlRoot == "" {
		e.xmlRoot = objectType
	}
	e.splitXPath = meta.SplitXPath
	if e.splitXPath == "" {
		e.splitXPath = "//" + e.xmlRoot
	}
	e.raw = schema
	e.resolved = resolved
	return nil
}

func (c *Catalog) loadXSD(dir, name string) error {
	base := strings.TrimSuffix(name, ".xsd")
	provider, objectType := parseStem(base)

	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("schemacatalog: read %s: %w", name, err)
	}
	xsd, err := parseXSD(data)
	if err != nil {
		return fmt.Errorf("schemacatalog: parse %s: %w", name, err)
	}

	e := c.get(objectType)
	if provider != "" {
		e.provider = provider
	}
	e.xsd = xsd
	return nil
}

func (c *Catalog) get(objectType string) *entry {
	e, ok := c.entries[objectType]
	if !ok {
		e = &entry{objectType: objectType}
		c.entries[objectType] = e
	}
	return e
}

// Schemas returns the catalog's entries ordered by descending priority,
// then name.
func (c *Catalog) Schemas() []SchemaInfo {
	out := make([]SchemaInfo, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, SchemaInfo{
			Name:        e.objectType,
			Priority:    e.priority,
			Provider:    e.provider,
			Description: e.description,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// SchemaFor returns the raw JSON Schema AST for an object_type.
func (c *Catalog) SchemaFor(objectType string) (*jsonschema.Schema, bool) {
	e, ok := c.entries[objectType]
	if !ok {
		return nil, false
	}
	return e.raw, true
}

// Has reports whether objectType is a recognised schema name.
func (c *Catalog) Has(objectType string) bool {
	_, ok := c.entries[objectType]
	return ok
}

// SplitXPath returns the XPath-lite expression used to find each logical
// object within a multipart bundle part for objectType, defaulting to
// "//<xmlRoot>" when the schema declares none.
func (c *Catalog) SplitXPath(objectType string) (string, bool) {
	e, ok := c.entries[objectType]
	if !ok {
		return "", false
	}
	return e.splitXPath, true
}
