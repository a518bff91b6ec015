package protocol

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/gocloudkit/awssdk-core/internal/shape"
)

// xmlNode is a value-typed XML tree: each node owns its children in its
// own slice, in document order, and there are no parent pointers,
// avoiding the cyclic-reference bookkeeping a naive DOM would need for a
// value type copied freely through the codec.
type xmlNode struct {
	Name     string
	Attrs    []xml.Attr
	Children []xmlNode
	Text     string
}

func (n xmlNode) child(name string) (xmlNode, bool) {
	for _, c := range n.Children {
		if c.Name == name {
			return c, true
		}
	}
	return xmlNode{}, false
}

func (n xmlNode) childrenNamed(name string) []xmlNode {
	var out []xmlNode
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// parseXML decodes raw XML bytes into an xmlNode tree rooted at the
// document element.
func parseXML(body []byte) (xmlNode, error) {
	dec := xml.NewDecoder(strings.NewReader(string(body)))
	var stack []*xmlNode
	var root *xmlNode

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			node := xmlNode{Name: t.Name.Local, Attrs: t.Attr}
			if len(stack) == 0 {
				root = &node
				stack = append(stack, root)
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
				stack = append(stack, &parent.Children[len(parent.Children)-1])
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		case xml.EndElement:
			if len(stack) > 0 {
				stack[len(stack)-1].Text = strings.TrimSpace(stack[len(stack)-1].Text)
				stack = stack[:len(stack)-1]
			}
		}
	}
	if root == nil {
		return xmlNode{}, fmt.Errorf("protocol: empty or malformed xml document")
	}
	return *root, nil
}

// buildXMLElement renders a Values bag as an XML element named rootName,
// honoring body-located members per desc and the descriptor's declared
// namespace.
func buildXMLElement(rootName string, desc shape.Descriptor, input shape.Values) []byte {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(rootName)
	if desc.XMLNamespace != "" {
		fmt.Fprintf(&b, ` xmlns="%s"`, desc.XMLNamespace)
	}
	b.WriteString(">")
	writeXMLMembers(&b, desc.ByLocation(shape.LocationBody), input)
	b.WriteString("</")
	b.WriteString(rootName)
	b.WriteString(">")
	return []byte(b.String())
}

func writeXMLMembers(b *strings.Builder, members []shape.Member, input shape.Values) {
	for _, m := range members {
		v, ok := input[m.Label]
		if !ok || v == nil {
			continue
		}
		writeXMLValue(b, m.Name, m, v)
	}
}

func writeXMLValue(b *strings.Builder, name string, m shape.Member, v shape.Value) {
	switch val := v.(type) {
	case shape.Values:
		b.WriteString("<" + name + ">")
		for k, vv := range val {
			writeXMLValue(b, k, shape.Member{Kind: shape.KindString}, vv)
		}
		b.WriteString("</" + name + ">")
	case []shape.Value:
		for _, item := range val {
			writeXMLValue(b, name, m, item)
		}
	default:
		b.WriteString("<" + name + ">")
		b.WriteString(xmlEscape(stringify(v, m)))
		b.WriteString("</" + name + ">")
	}
}

func xmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")
	return r.Replace(s)
}

// nodeToValues converts an xmlNode's children into shape.Values per desc's
// body members, applying type coercion per member Kind.
func nodeToValues(node xmlNode, desc shape.Descriptor) shape.Values {
	out := make(shape.Values)
	byName := make(map[string]shape.Member)
	for _, m := range desc.Members {
		byName[m.Name] = m
	}
	for _, c := range node.Children {
		m, known := byName[c.Name]
		if !known {
			m = shape.Member{Label: c.Name, Name: c.Name, Kind: shape.KindString}
		}
		out[memberLabel(m)] = xmlNodeToValue(c, m)
	}
	return out
}

func memberLabel(m shape.Member) string {
	if m.Label != "" {
		return m.Label
	}
	return m.Name
}

func xmlNodeToValue(node xmlNode, m shape.Member) shape.Value {
	switch m.Kind {
	case shape.KindBlob:
		b, err := decodeBlob(node.Text)
		if err != nil {
			return node.Text
		}
		return b
	case shape.KindTimestamp:
		t, err := parseTimestamp(node.Text)
		if err != nil {
			return node.Text
		}
		return t
	case shape.KindStructure:
		return nodeToValues(node, shape.Descriptor{})
	default:
		if len(node.Children) == 0 {
			return coerceHeaderValue(node.Text)
		}
		return nodeToValues(node, shape.Descriptor{})
	}
}
