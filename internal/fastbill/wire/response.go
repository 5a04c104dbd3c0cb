package wire

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrEmptyDocument   = errors.New("empty response document")
	ErrMissingResponse = errors.New("response element missing")
)

// Node is one element of a parsed response.
type Node struct {
	Name     string
	Text     string
	Children []*Node
}

// Child returns the first direct child called name. It is safe on nil.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, child := range n.Children {
		if child.Name == name {
			return child
		}
	}
	return nil
}

// Find walks path from n, one child name per step.
func (n *Node) Find(path ...string) *Node {
	current := n
	for _, name := range path {
		current = current.Child(name)
		if current == nil {
			return nil
		}
	}
	return current
}

// Value returns the trimmed text at path, or "" when absent.
func (n *Node) Value(path ...string) string {
	target := n.Find(path...)
	if target == nil {
		return ""
	}
	return strings.TrimSpace(target.Text)
}

// All returns every direct child called name.
func (n *Node) All(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, child := range n.Children {
		if child.Name == name {
			out = append(out, child)
		}
	}
	return out
}

// Result is a parsed response: either a success payload or API errors.
type Result struct {
	// Payload is the RESPONSE element on success.
	Payload *Node
	Errors  []string
}

func (r Result) Failed() bool {
	return len(r.Errors) > 0
}

func (r Result) Message() string {
	return strings.Join(r.Errors, "; ")
}

// Parse decodes a response body. Malformed XML or a document without a
// RESPONSE element is an error. An ERRORS element, under RESPONSE or at the
// root, yields a failed Result.
func Parse(raw []byte) (Result, error) {
	root, err := ParseTree(raw)
	if err != nil {
		return Result{}, err
	}

	response := root
	if root.Name != "RESPONSE" {
		response = root.Child("RESPONSE")
	}

	if errs := collectErrors(response.Child("ERRORS")); len(errs) > 0 {
		return Result{Errors: errs}, nil
	}
	if errs := collectErrors(root.Child("ERRORS")); len(errs) > 0 {
		return Result{Errors: errs}, nil
	}
	if response == nil {
		return Result{}, ErrMissingResponse
	}
	return Result{Payload: response}, nil
}

func collectErrors(node *Node) []string {
	if node == nil {
		return nil
	}
	var out []string
	for _, e := range node.All("ERROR") {
		if msg := strings.TrimSpace(e.Text); msg != "" {
			out = append(out, msg)
		}
	}
	if len(out) == 0 {
		if msg := strings.TrimSpace(node.Text); msg != "" {
			out = append(out, msg)
		} else {
			out = append(out, "unknown error")
		}
	}
	return out
}

// ParseTree decodes raw into a Node tree.
func ParseTree(raw []byte) (*Node, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyDocument
	}

	dec := xml.NewDecoder(bytes.NewReader(raw))
	var (
		root  *Node
		stack []*Node
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &Node{Name: t.Name.Local}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			} else if root == nil {
				root = node
			} else {
				return nil, errors.New("decode response: multiple root elements")
			}
			stack = append(stack, node)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}

	if root == nil {
		return nil, ErrEmptyDocument
	}
	return root, nil
}
