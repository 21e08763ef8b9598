package xmlproc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// node is a generic XML element tree built by hand from decoder tokens
// (rather than via xml.Unmarshal into a fixed struct) so that arbitrary,
// schema-unknown-to-Go element shapes can still be walked and mapped to
// JSON. Mirrors the decoder.Token() loop docpipe uses to walk .docx XML,
// generalized from a fixed document shape to an arbitrary one.
type node struct {
	Name     string
	Attrs    []xml.Attr
	Children []*node
	Text     string
	Parent   *node
}

func attr(attrs []xml.Attr, local string) (string, bool) {
	for _, a := range attrs {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// parseTree decodes data into a node tree rooted at its single top-level
// element.
func parseTree(data []byte) (*node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("xmlproc: no root element: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			return decodeElement(dec, start)
		}
	}
}

func decodeElement(dec *xml.Decoder, start xml.StartElement) (*node, error) {
	n := &node{Name: start.Name.Local, Attrs: start.Attr}
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("xmlproc: unterminated element %q: %w", start.Name.Local, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeElement(dec, t)
			if err != nil {
				return nil, err
			}
			child.Parent = n
			n.Children = append(n.Children, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			n.Text = strings.TrimSpace(collapseWhitespace(text.String()))
			return n, nil
		}
	}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// toJSON maps a node to a JSON-ready Go value per the deterministic
// mapping: attributes become siblings of child-element keys, repeated
// child names become arrays, and a childless, attributeless leaf
// collapses to its text as a bare scalar (not an object).
func toJSON(n *node) any {
	if len(n.Attrs) == 0 && len(n.Children) == 0 {
		return n.Text
	}

	out := make(map[string]any, len(n.Attrs)+len(n.Children))
	for _, a := range n.Attrs {
		out[a.Name.Local] = a.Value
	}

	order := make([]string, 0, len(n.Children))
	grouped := make(map[string][]any)
	for _, c := range n.Children {
		if _, seen := grouped[c.Name]; !seen {
			order = append(order, c.Name)
		}
		grouped[c.Name] = append(grouped[c.Name], toJSON(c))
	}
	for _, name := range order {
		vals := grouped[name]
		if len(vals) == 1 {
			out[name] = vals[0]
		} else {
			out[name] = vals
		}
	}

	if n.Text != "" {
		out["#text"] = n.Text
	}
	return out
}

// setAttr sets or replaces attr local name on n with value.
func setAttr(n *node, local, value string) {
	for i, a := range n.Attrs {
		if a.Name.Local == local {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, xml.Attr{Name: xml.Name{Local: local}, Value: value})
}

// toXML re-serializes a node subtree to XML, escaping attribute and text
// content. Used to mint each split-out logical object's retrievable XML,
// so the accession_id attribute injected by setAttr is reflected in both
// the stored JSON (via toJSON) and the stored XML.
func toXML(n *node) []byte {
	var buf bytes.Buffer
	writeNode(&buf, n)
	return buf.Bytes()
}

func writeNode(buf *bytes.Buffer, n *node) {
	buf.WriteByte('<')
	buf.WriteString(n.Name)
	for _, a := range n.Attrs {
		buf.WriteByte(' ')
		buf.WriteString(a.Name.Local)
		buf.WriteString(`="`)
		xml.EscapeText(buf, []byte(a.Value))
		buf.WriteByte('"')
	}
	if len(n.Children) == 0 && n.Text == "" {
		buf.WriteString("/>")
		return
	}
	buf.WriteByte('>')
	if len(n.Children) == 0 {
		xml.EscapeText(buf, []byte(n.Text))
	} else {
		for _, c := range n.Children {
			writeNode(buf, c)
		}
	}
	buf.WriteString("</")
	buf.WriteString(n.Name)
	buf.WriteByte('>')
}
