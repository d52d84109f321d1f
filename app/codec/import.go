package codec

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"nought/app/models"

	"github.com/google/uuid"
)

// ErrMalformed is returned for documents that are well-formed XML but do not
// follow the nought structure.
var ErrMalformed = errors.New("malformed nought document")

// ParseError is a fatal import error with the position it was detected at.
type ParseError struct {
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse nought document: line %d, column %d: %v", e.Line, e.Column, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// field is the builder field waiting for text content.
type field int

const (
	fieldNone field = iota
	fieldName
	fieldDesc
	fieldDate
	fieldTime
)

var fieldElements = map[string]field{
	elemName: fieldName,
	elemDesc: fieldDesc,
	elemDate: fieldDate,
	elemTime: fieldTime,
}

// Importer rebuilds tasks from a nought document into a store.
//
// It is a state machine driven by StartElement, Text and EndElement. A
// <todo id> opens a builder; each <todo ref> inside it stages a child and
// suppresses its own closing event; the closing </todo> of the definition
// builds the task. Children are resolved when the referencing task is
// built, so a child must be defined earlier in the document.
type Importer struct {
	store *models.Store

	builder  *models.Builder
	pending  field
	text     bytes.Buffer
	skips    int
	seenRoot bool
}

// NewImporter creates an importer that inserts into store.
func NewImporter(store *models.Store) *Importer {
	return &Importer{store: store}
}

// Import parses the document read from r. On error the store may hold the
// tasks built before the failure; import into a fresh store and discard it
// in that case.
func (im *Importer) Import(r io.Reader) error {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return im.fail(dec, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			err = im.StartElement(t)
		case xml.EndElement:
			err = im.EndElement(t)
		case xml.CharData:
			im.Text(t)
		}
		if err != nil {
			return im.fail(dec, err)
		}
	}

	if !im.seenRoot {
		return &ParseError{Line: 1, Column: 1, Err: fmt.Errorf("%w: empty document", ErrMalformed)}
	}
	return nil
}

func (im *Importer) fail(dec *xml.Decoder, err error) error {
	line, col := dec.InputPos()
	return &ParseError{Line: line, Column: col, Err: err}
}

// StartElement handles an opening tag.
func (im *Importer) StartElement(el xml.StartElement) error {
	if !im.seenRoot {
		if el.Name.Local != elemRoot {
			return fmt.Errorf("%w: root element is <%s>, want <%s>", ErrMalformed, el.Name.Local, elemRoot)
		}
		im.seenRoot = true
		return nil
	}

	switch el.Name.Local {
	case elemTodo:
		return im.startTodo(el)
	case elemCompleted:
		if im.builder == nil {
			return fmt.Errorf("%w: <%s> outside a todo definition", ErrMalformed, elemCompleted)
		}
		im.builder.Completed(true)
	default:
		f, ok := fieldElements[el.Name.Local]
		if !ok {
			return nil
		}
		if im.builder == nil {
			return fmt.Errorf("%w: <%s> outside a todo definition", ErrMalformed, el.Name.Local)
		}
		im.pending = f
		im.text.Reset()
	}
	return nil
}

func (im *Importer) startTodo(el xml.StartElement) error {
	if id, ok := attr(el, attrID); ok {
		if im.builder != nil {
			return fmt.Errorf("%w: todo definition nested in another definition", ErrMalformed)
		}
		parsed, err := ParseID(id)
		if err != nil {
			return err
		}
		if _, err := im.store.FindByID(parsed); err == nil {
			return fmt.Errorf("%w: todo %s is defined more than once", ErrMalformed, id)
		}
		im.builder = im.store.NewBuilder().ID(parsed)
		return nil
	}

	if ref, ok := attr(el, attrRef); ok {
		if im.builder == nil {
			return fmt.Errorf("%w: todo reference outside a todo definition", ErrMalformed)
		}
		parsed, err := ParseID(ref)
		if err != nil {
			return err
		}
		im.builder.AddChild(parsed)
		im.skips++
		return nil
	}

	return fmt.Errorf("%w: invalid <todo> element: neither todo definition with id attribute, nor reference with ref attribute", ErrMalformed)
}

// Text handles character data. It is collected only while a field element
// is open.
func (im *Importer) Text(data []byte) {
	if im.pending == fieldNone {
		return
	}
	im.text.Write(data)
}

// EndElement handles a closing tag.
func (im *Importer) EndElement(el xml.EndElement) error {
	switch el.Name.Local {
	case elemTodo:
		return im.endTodo()
	default:
		f, ok := fieldElements[el.Name.Local]
		if !ok || f != im.pending {
			return nil
		}
		im.deliver(f, im.text.String())
		im.pending = fieldNone
		im.text.Reset()
	}
	return nil
}

func (im *Importer) endTodo() error {
	if im.skips > 0 {
		im.skips--
		return nil
	}
	if im.builder == nil {
		return nil
	}

	b := im.builder
	im.builder = nil
	if _, err := b.Build(); err != nil {
		return err
	}
	return nil
}

// deliver forwards field text to the builder. Date and time text that does
// not parse is dropped and the field stays unset.
func (im *Importer) deliver(f field, text string) {
	switch f {
	case fieldName:
		im.builder.Name(text)
	case fieldDesc:
		im.builder.Description(text)
	case fieldDate:
		if date, err := models.ParseDate(strings.TrimSpace(text)); err == nil {
			im.builder.DueDate(&date)
		}
	case fieldTime:
		if tod, err := models.ParseTimeOfDay(strings.TrimSpace(text)); err == nil {
			im.builder.DueTime(&tod)
		}
	}
}

func attr(el xml.StartElement, name string) (string, bool) {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// ParseID parses a document identifier. The leading "_" is optional.
func ParseID(text string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimPrefix(text, idPrefix))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad identifier %q: %v", ErrMalformed, text, err)
	}
	return id, nil
}
