package schemacatalog

import (
	"encoding/xml"
	"fmt"
	"strconv"
)

// xsdSchema is a structural reading of an XSD's element declarations:
// names, nesting, attribute presence, and child cardinality. It is not a
// conformance-complete XSD engine (type facets, xs:restriction, unions
// and the like are not interpreted) — only enough to catch the
// element/attribute shape mistakes a submitter is likely to make.
type xsdSchema struct {
	Elements []xsdElement `xml:"element"`
}

type xsdElement struct {
	Name        string          `xml:"name,attr"`
	MinOccurs   string          `xml:"minOccurs,attr"`
	MaxOccurs   string          `xml:"maxOccurs,attr"`
	ComplexType *xsdComplexType `xml:"complexType"`
}

type xsdComplexType struct {
	Sequence   *xsdSequence   `xml:"sequence"`
	Attributes []xsdAttribute `xml:"attribute"`
}

type xsdSequence struct {
	Elements []xsdElement `xml:"element"`
}

type xsdAttribute struct {
	Name string `xml:"name,attr"`
	Use  string `xml:"use,attr"`
}

func parseXSD(data []byte) (*xsdSchema, error) {
	var s xsdSchema
	if err := xml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (e *xsdElement) children() []xsdElement {
	if e.ComplexType == nil || e.ComplexType.Sequence == nil {
		return nil
	}
	return e.ComplexType.Sequence.Elements
}

func (e *xsdElement) requiredAttrs() []string {
	if e.ComplexType == nil {
		return nil
	}
	var out []string
	for _, a := range e.ComplexType.Attributes {
		if a.Use == "required" {
			out = append(out, a.Name)
		}
	}
	return out
}

func occursBounds(min, max string) (lo int, hi int, unbounded bool) {
	lo = 1
	if min != "" {
		if v, err := strconv.Atoi(min); err == nil {
			lo = v
		}
	}
	if max == "unbounded" {
		return lo, 0, true
	}
	hi = 1
	if max != "" {
		if v, err := strconv.Atoi(max); err == nil {
			hi = v
		}
	}
	return lo, hi, false
}

// xmlNode is a generic parse tree used only for structural validation;
// xmlproc's own decoder builds its own richer tree for the XML-to-JSON
// mapping and accession minting.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []xmlNode  `xml:",any"`
}

// ValidateXML checks data's element/attribute structure against name's
// XSD. ok is reported as an empty error slice.
func (c *Catalog) ValidateXML(name string, data []byte) ([]ValidationError, error) {
	e, ok := c.entries[name]
	if !ok {
		return nil, fmt.Errorf("schemacatalog: unknown schema %q", name)
	}
	if e.xsd == nil {
		return nil, fmt.Errorf("schemacatalog: %q has no xsd loaded", name)
	}

	var root xmlNode
	if err := xml.Unmarshal(data, &root); err != nil {
		return []ValidationError{{Message: fmt.Sprintf("malformed xml: %v", err)}}, nil
	}

	var def *xsdElement
	for i := range e.xsd.Elements {
		if e.xsd.Elements[i].Name == root.XMLName.Local {
			def = &e.xsd.Elements[i]
			break
		}
	}
	if def == nil {
		return []ValidationError{{Message: fmt.Sprintf("unexpected root element %q", root.XMLName.Local)}}, nil
	}

	var errs []ValidationError
	validateStructure(root, *def, root.XMLName.Local, &errs)
	return errs, nil
}

func validateStructure(node xmlNode, def xsdElement, path string, errs *[]ValidationError) {
	for _, attr := range def.requiredAttrs() {
		found := false
		for _, a := range node.Attrs {
			if a.Name.Local == attr {
				found = true
				break
			}
		}
		if !found {
			*errs = append(*errs, ValidationError{
				Pointer: path,
				Message: fmt.Sprintf("missing required attribute %q", attr),
			})
		}
	}

	childDefs := def.children()
	if childDefs == nil {
		return
	}
	counts := make(map[string]int)
	for _, child := range node.Children {
		counts[child.XMLName.Local]++
		matched := false
		for i := range childDefs {
			if childDefs[i].Name == child.XMLName.Local {
				matched = true
				validateStructure(child, childDefs[i], path+"/"+child.XMLName.Local, errs)
				break
			}
		}
		if !matched {
			*errs = append(*errs, ValidationError{
				Pointer: path,
				Message: fmt.Sprintf("unexpected element %q", child.XMLName.Local),
			})
		}
	}
	for _, cd := range childDefs {
		lo, hi, unbounded := occursBounds(cd.MinOccurs, cd.MaxOccurs)
		n := counts[cd.Name]
		if n < lo {
			*errs = append(*errs, ValidationError{
				Pointer: path,
				Message: fmt.Sprintf("element %q occurs %d times, expected at least %d", cd.Name, n, lo),
			})
		}
		if !unbounded && n > hi {
			*errs = append(*errs, ValidationError{
				Pointer: path,
				Message: fmt.Sprintf("element %q occurs %d times, expected at most %d", cd.Name, n, hi),
			})
		}
	}
}
