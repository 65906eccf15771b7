// Package envelope parses server XML replies into validated, success/error-checked views.
package envelope

import (
	"errors"
	"strconv"

	"github.com/beevik/etree"

	"rundeck/pkg/apperrors"
)

var errNoRoot = errors.New("document has no root element")

// Envelope wraps one server reply. It is immutable once constructed: all
// derived fields are computed eagerly from the parsed tree.
type Envelope struct {
	body             string
	root             *etree.Element
	clientAPIVersion int
	transform        Transform

	apiVersion int
	success    bool
	message    string
	pretty     string
}

// New parses a raw response body into an Envelope.
// Returns a malformed-response error if the body is not well-formed XML.
func New(body string, clientAPIVersion int) (*Envelope, error) {
	return NewTransformed(body, clientAPIVersion, "")
}

// NewTransformed parses a raw response body and attaches the named transform.
// An unregistered name leaves the envelope without a transform, in which case
// AsStructured returns nil.
func NewTransformed(body string, clientAPIVersion int, transformName string) (*Envelope, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(body); err != nil {
		return nil, apperrors.MalformedResponse("envelope.parse", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, apperrors.MalformedResponse("envelope.parse", errNoRoot)
	}

	e := &Envelope{
		body:             body,
		root:             root,
		clientAPIVersion: clientAPIVersion,
	}
	if transformName != "" {
		if fn, ok := Lookup(transformName); ok {
			e.transform = fn
		}
	}

	e.apiVersion = parseAPIVersion(root)
	e.success = root.SelectAttr("success") != nil
	e.message = deriveMessage(root, e.success)
	e.pretty = prettyPrint(doc)

	return e, nil
}

// Body returns the raw response body.
func (e *Envelope) Body() string {
	return e.body
}

// Root returns the root element of the parsed tree.
// Transforms walk the tree through this accessor; they must not mutate it.
func (e *Envelope) Root() *etree.Element {
	return e.root
}

// ClientAPIVersion returns the API version the caller expected.
func (e *Envelope) ClientAPIVersion() int {
	return e.clientAPIVersion
}

// APIVersion returns the apiversion attribute of the root element, or -1 if absent.
func (e *Envelope) APIVersion() int {
	return e.apiVersion
}

// Success reports whether the root element carries a success attribute.
func (e *Envelope) Success() bool {
	return e.success
}

// Message returns the <success><message> text when the reply succeeded, the
// <error><message> text when it failed, or the literal "success"/"error" when
// the expected sub-element is missing.
func (e *Envelope) Message() string {
	return e.message
}

// Pretty returns an indented rendering of the body. Debugging aid only.
func (e *Envelope) Pretty() string {
	return e.pretty
}

// CheckError returns a server error carrying the envelope's message when the
// reply indicates failure, and nil otherwise. An optional message overrides
// the derived one.
func (e *Envelope) CheckError(msg ...string) error {
	if e.success {
		return nil
	}
	m := e.message
	if len(msg) > 0 && msg[0] != "" {
		m = msg[0]
	}
	return apperrors.Server(m, e)
}

// AsStructured applies the attached transform to the envelope. Returns nil
// when no transform is attached.
func (e *Envelope) AsStructured() (any, error) {
	if e.transform == nil {
		return nil, nil
	}
	return e.transform(e)
}

func parseAPIVersion(root *etree.Element) int {
	attr := root.SelectAttr("apiversion")
	if attr == nil {
		return -1
	}
	v, err := strconv.Atoi(attr.Value)
	if err != nil {
		return -1
	}
	return v
}

func deriveMessage(root *etree.Element, success bool) string {
	term := "error"
	if success {
		term = "success"
	}
	el := root.SelectElement(term)
	if el == nil {
		return term
	}
	msg := el.SelectElement("message")
	if msg == nil {
		return term
	}
	return msg.Text()
}

func prettyPrint(doc *etree.Document) string {
	indented := doc.Copy()
	indented.Indent(2)
	s, err := indented.WriteToString()
	if err != nil {
		// WriteToString on an in-memory tree cannot fail in practice
		return ""
	}
	return s
}
