// Package gpx loads GPX/XML track recordings into a lightweight element tree.
//
// Element tags are kept in Clark notation ("{namespace-uri}local") so callers can
// match on local names with LocalName regardless of the namespace a vendor
// extension was declared in.
package gpx

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
)

// Node is a single XML element.
type Node struct {
	Tag      string  // Clark notation, e.g. "{http://www.topografix.com/GPX/1/1}trkpt".
	Text     string  // Trimmed character data directly inside the element.
	Children []*Node // Child elements in document order.
}

// LocalName strips a leading "{namespace}" from an element tag.
// Tags without a namespace are returned unchanged.
func LocalName(tag string) string {
	if !strings.HasPrefix(tag, "{") {
		return tag
	}
	if i := strings.IndexByte(tag, '}'); i >= 0 {
		return tag[i+1:]
	}
	return tag
}

// Name returns the element's local name.
func (n *Node) Name() string {
	return LocalName(n.Tag)
}

// All yields n and every descendant depth-first in document order.
func (n *Node) All() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		n.walk(yield)
	}
}

func (n *Node) walk(yield func(*Node) bool) bool {
	if !yield(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.walk(yield) {
			return false
		}
	}
	return true
}

// First returns the first element in document order with the given local name.
func (n *Node) First(local string) *Node {
	for el := range n.All() {
		if el.Name() == local {
			return el
		}
	}
	return nil
}

// Parse reads a complete XML document and returns its root element.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)

	var (
		root  *Node
		stack []*Node
		text  []*strings.Builder
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &Node{Tag: clark(t.Name)}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("decode xml: multiple root elements")
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)
			text = append(text, &strings.Builder{})
		case xml.CharData:
			if len(text) > 0 {
				text[len(text)-1].Write(t)
			}
		case xml.EndElement:
			el := stack[len(stack)-1]
			el.Text = strings.TrimSpace(text[len(text)-1].String())
			stack = stack[:len(stack)-1]
			text = text[:len(text)-1]
		}
	}

	if root == nil {
		return nil, fmt.Errorf("decode xml: no root element")
	}
	return root, nil
}

// ParseFile parses the XML document at path.
func ParseFile(path string) (*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	root, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return root, nil
}

func clark(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return "{" + name.Space + "}" + name.Local
}
