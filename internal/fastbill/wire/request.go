package wire

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"
)

const (
	header       = `<?xml version="1.0" encoding="utf-8"?>`
	envelopeName = "FBAPI"
)

// Element is one node of a request document. Leaf elements carry Text,
// container elements carry Children.
type Element struct {
	Name     string
	Text     string
	Children []*Element
}

// Elem builds a container element. Nil children are dropped so optional
// fields can be passed inline.
func Elem(name string, children ...*Element) *Element {
	return (&Element{Name: name}).Append(children...)
}

func Text(name, value string) *Element {
	return &Element{Name: name, Text: value}
}

// OptionalText returns nil for blank values.
func OptionalText(name, value string) *Element {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return Text(name, value)
}

func Int(name string, value int64) *Element {
	return Text(name, strconv.FormatInt(value, 10))
}

func (e *Element) Append(children ...*Element) *Element {
	for _, child := range children {
		if child != nil {
			e.Children = append(e.Children, child)
		}
	}
	return e
}

// Child returns the first direct child called name.
func (e *Element) Child(name string) *Element {
	if e == nil {
		return nil
	}
	for _, child := range e.Children {
		if child.Name == name {
			return child
		}
	}
	return nil
}

func (e *Element) MarshalXML(enc *xml.Encoder, _ xml.StartElement) error {
	start := xml.StartElement{Name: xml.Name{Local: e.Name}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if len(e.Children) == 0 && e.Text != "" {
		if err := enc.EncodeToken(xml.CharData(e.Text)); err != nil {
			return err
		}
	}
	for _, child := range e.Children {
		if err := child.MarshalXML(enc, xml.StartElement{}); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

// Request is one FastBill API call: a service name plus a DATA or FILTER
// payload.
type Request struct {
	Service string
	Data    *Element
	Filter  *Element
}

func NewRequest(service string) *Request {
	return &Request{Service: service}
}

func (r *Request) WithData(children ...*Element) *Request {
	r.Data = Elem("DATA", children...)
	return r
}

// WithFilter sets the FILTER payload. Calling it without children yields an
// empty FILTER element.
func (r *Request) WithFilter(children ...*Element) *Request {
	r.Filter = Elem("FILTER", children...)
	return r
}

// Document returns the envelope tree.
func (r *Request) Document() *Element {
	return Elem(envelopeName, Text("SERVICE", r.Service), r.Filter, r.Data)
}

// Encode serializes the request once, with the XML declaration.
func (r *Request) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(header)
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(r.Document()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
