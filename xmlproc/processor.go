package xmlproc

import (
	"fmt"
	"sort"
	"strings"

	"github.com/CSCfi/metadata-submitter-go/idgen"
	"github.com/CSCfi/metadata-submitter-go/schemacatalog"
	"github.com/CSCfi/metadata-submitter-go/store"
)

// Processor implements the multipart bundle contract of spec.md §4.C.
type Processor struct {
	catalog *schemacatalog.Catalog
	idGen   idgen.Generator
}

// New builds a Processor bound to a loaded schema catalog. idGen mints
// FEGA/SD accession IDs; BP accessions are always the deterministic hash
// regardless of idGen.
func New(catalog *schemacatalog.Catalog, idGen idgen.Generator) *Processor {
	return &Processor{catalog: catalog, idGen: idGen}
}

// splitNode is an intermediate result: one matched node before naming,
// minting, and JSON mapping have happened.
type splitNode struct {
	objectType string
	n          *node
}

// ProcessBundle runs the full 7-step contract over a multipart bundle,
// where parts maps a field name (expected to equal an object_type) to
// that part's raw XML bytes.
func (p *Processor) ProcessBundle(wf store.Workflow, centerID, submissionID string, parts map[string][]byte) *BundleResult {
	result := &BundleResult{}

	fieldNames := make([]string, 0, len(parts))
	for k := range parts {
		fieldNames = append(fieldNames, k)
	}
	sort.Strings(fieldNames)

	var split []splitNode
	for _, fieldName := range fieldNames {
		data := parts[fieldName]

		if !p.catalog.Has(fieldName) {
			result.Errors = append(result.Errors, ProcessingError{
				Kind:       KindUnknownSchema,
				ObjectType: fieldName,
				Message:    fmt.Sprintf("no schema registered for field %q", fieldName),
			})
			continue
		}

		if xsdErrs, err := p.catalog.ValidateXML(fieldName, data); err == nil && len(xsdErrs) > 0 {
			for _, ve := range xsdErrs {
				result.Errors = append(result.Errors, ProcessingError{
					Kind:       KindXMLSchema,
					ObjectType: fieldName,
					Pointer:    ve.Pointer,
					Line:       ve.Line,
					Message:    ve.Message,
				})
			}
			continue
		}

		root, err := parseTree(data)
		if err != nil {
			result.Errors = append(result.Errors, ProcessingError{
				Kind:       KindXMLSchema,
				ObjectType: fieldName,
				Message:    err.Error(),
			})
			continue
		}

		xpath, _ := p.catalog.SplitXPath(fieldName)
		matches := evalXPath(root, xpath)
		if len(matches) == 0 {
			result.Errors = append(result.Errors, ProcessingError{
				Kind:       KindXMLSchema,
				ObjectType: fieldName,
				Message:    fmt.Sprintf("no logical objects matched %q in part %q", xpath, fieldName),
			})
			continue
		}
		for _, m := range matches {
			split = append(split, splitNode{objectType: fieldName, n: m})
		}
	}

	// Pass 1: assign names, reject duplicates, mint accessions.
	type minted struct {
		objectType  string
		name        string
		accessionID string
		n           *node
	}
	seen := make(map[string]map[string]bool)
	var objects []minted
	index := make(map[string]map[string]string) // objectType -> name -> accessionID

	for _, s := range split {
		name, ok := objectName(s.n)
		if !ok {
			result.Errors = append(result.Errors, ProcessingError{
				Kind:       KindXMLSchema,
				ObjectType: s.objectType,
				Message:    "object has no name attribute/element",
			})
			continue
		}
		if seen[s.objectType] == nil {
			seen[s.objectType] = make(map[string]bool)
		}
		if seen[s.objectType][name] {
			result.Errors = append(result.Errors, ProcessingError{
				Kind:       KindDuplicateName,
				ObjectType: s.objectType,
				Name:       name,
				Message:    fmt.Sprintf("duplicate name %q for object_type %q", name, s.objectType),
			})
			continue
		}
		seen[s.objectType][name] = true

		accessionID := mintAccessionID(wf, centerID, submissionID, s.objectType, name, p.idGen)
		setAttr(s.n, "accession_id", accessionID)

		if index[s.objectType] == nil {
			index[s.objectType] = make(map[string]string)
		}
		index[s.objectType][name] = accessionID

		objects = append(objects, minted{objectType: s.objectType, name: name, accessionID: accessionID, n: s.n})
	}

	// Pass 2: resolve cross-references now that every object in the
	// bundle has been named and minted, then map to JSON and XML.
	for _, m := range objects {
		refErrs := resolveReferences(m.n, index)
		for _, re := range refErrs {
			result.Errors = append(result.Errors, re)
		}

		mapped := toJSON(m.n)
		if jsonErrs, err := p.catalog.ValidateJSON(m.objectType, mapped); err == nil {
			for _, ve := range jsonErrs {
				result.Errors = append(result.Errors, ProcessingError{
					Kind:       KindJSONSchema,
					ObjectType: m.objectType,
					Pointer:    ve.Pointer,
					Message:    ve.Message,
				})
			}
		}

		asMap, _ := mapped.(map[string]any)
		result.Objects = append(result.Objects, LogicalObject{
			ObjectType:  m.objectType,
			AccessionID: m.accessionID,
			Name:        m.name,
			XML:         toXML(m.n),
			JSON:        asMap,
		})
	}

	return result
}

// objectName extracts a logical object's submitter-facing name: the
// "name" attribute if present, else the "alias" attribute, else the text
// of a child element named NAME or ALIAS (case-insensitive).
func objectName(n *node) (string, bool) {
	if v, ok := attr(n.Attrs, "name"); ok && v != "" {
		return v, true
	}
	if v, ok := attr(n.Attrs, "alias"); ok && v != "" {
		return v, true
	}
	for _, c := range n.Children {
		if strings.EqualFold(c.Name, "NAME") || strings.EqualFold(c.Name, "ALIAS") {
			if c.Text != "" {
				return c.Text, true
			}
		}
	}
	return "", false
}

// resolveReferences walks n for reference sites — elements whose name
// ends in "_REF", naming another bundle object by the "refname"
// attribute/child or their own text — and rewrites each to additionally
// carry the referenced accession_id. Unresolved references accumulate as
// ReferenceError instead of failing the whole object.
func resolveReferences(n *node, index map[string]map[string]string) []ProcessingError {
	var errs []ProcessingError
	var walk func(*node)
	walk = func(cur *node) {
		if strings.HasSuffix(cur.Name, "_REF") {
			targetType := strings.ToLower(strings.TrimSuffix(cur.Name, "_REF"))
			targetName, ok := refTargetName(cur)
			if ok {
				if id, found := index[targetType][targetName]; found {
					setAttr(cur, "accession_id", id)
				} else {
					errs = append(errs, ProcessingError{
						Kind:    KindReference,
						From:    cur.Name,
						ToName:  targetName,
						Message: fmt.Sprintf("%s references unknown %s %q", cur.Name, targetType, targetName),
					})
				}
			}
		}
		for _, c := range cur.Children {
			walk(c)
		}
	}
	walk(n)
	return errs
}

func refTargetName(n *node) (string, bool) {
	if v, ok := attr(n.Attrs, "refname"); ok && v != "" {
		return v, true
	}
	for _, c := range n.Children {
		if strings.EqualFold(c.Name, "REFNAME") && c.Text != "" {
			return c.Text, true
		}
	}
	if n.Text != "" {
		return n.Text, true
	}
	return "", false
}
