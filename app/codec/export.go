// Package codec reads and writes the nought XML document.
//
// A document looks like:
//
//	<?xml version="1.0" encoding="UTF-8"?>
//	<nought xmlns="https://kszi2.hu/~bodand/nought.xsd">
//	  <todos>
//	    <todo id="_60f2abf2-f76d-49f9-a4a5-c87b13a9cbbc">
//	      <name>Todo 1</name>
//	      <desc>Todo text</desc>
//	      <completed></completed>
//	      <due>
//	        <date>2022-11-07</date>
//	        <time>23:59:00</time>
//	      </due>
//	    </todo>
//	    <todo id="_80a41331-54a6-49a1-b8da-97c651a8110b">
//	      <name>Todo 2</name>
//	      <desc>More todo text</desc>
//	      <depends-on>
//	        <todo ref="_60f2abf2-f76d-49f9-a4a5-c87b13a9cbbc"></todo>
//	      </depends-on>
//	    </todo>
//	  </todos>
//	</nought>
//
// Every task is written after all of its children, so a reference never
// points forward in the document.
package codec

import (
	"encoding/xml"
	"fmt"
	"io"
	"unicode/utf8"

	"nought/app/models"

	"github.com/google/uuid"
)

// Namespace is the default XML namespace of a nought document.
const Namespace = "https://kszi2.hu/~bodand/nought.xsd"

const idPrefix = "_"

// Element and attribute names.
const (
	elemRoot      = "nought"
	elemTodos     = "todos"
	elemTodo      = "todo"
	elemName      = "name"
	elemDesc      = "desc"
	elemCompleted = "completed"
	elemDependsOn = "depends-on"
	elemDue       = "due"
	elemDate      = "date"
	elemTime      = "time"
	attrID        = "id"
	attrRef       = "ref"
)

// Exporter writes the tasks of a store as one XML document.
type Exporter struct {
	store *models.Store
}

// NewExporter creates an exporter for store.
func NewExporter(store *models.Store) *Exporter {
	return &Exporter{store: store}
}

// Export writes the document to w.
func (e *Exporter) Export(w io.Writer) error {
	order, err := e.order()
	if err != nil {
		return err
	}
	for _, task := range order {
		if err := checkTodoText(task); err != nil {
			return err
		}
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	root := xml.StartElement{
		Name: xml.Name{Local: elemRoot},
		Attr: []xml.Attr{{Name: xml.Name{Local: "xmlns"}, Value: Namespace}},
	}
	todos := start(elemTodos)
	if err := encodeTokens(enc, root, todos); err != nil {
		return err
	}
	for _, task := range order {
		if err := writeTodo(enc, task); err != nil {
			return fmt.Errorf("write todo %s: %w", task.ID(), err)
		}
	}
	if err := encodeTokens(enc, todos.End(), root.End()); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return fmt.Errorf("flush document: %w", err)
	}
	_, err = io.WriteString(w, "\n")
	return err
}

// order sorts the store's tasks so that every task follows all of its
// children. Tasks are visited in store order, children depth-first.
func (e *Exporter) order() ([]*models.Task, error) {
	const (
		unvisited = iota
		visiting
		written
	)
	state := make(map[uuid.UUID]int)
	var out []*models.Task

	var visit func(task *models.Task) error
	visit = func(task *models.Task) error {
		switch state[task.ID()] {
		case written:
			return nil
		case visiting:
			return fmt.Errorf("%w: dependency cycle through todo %q", models.ErrInvariantViolation, task.Name())
		}

		state[task.ID()] = visiting
		for _, cid := range task.Children() {
			child, err := e.store.FindByID(cid)
			if err != nil {
				return fmt.Errorf("child of todo %q: %w", task.Name(), err)
			}
			if err := visit(child); err != nil {
				return err
			}
		}
		state[task.ID()] = written
		out = append(out, task)
		return nil
	}

	for task := range e.store.All() {
		if err := visit(task); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func writeTodo(enc *xml.Encoder, task *models.Task) error {
	todo := xml.StartElement{
		Name: xml.Name{Local: elemTodo},
		Attr: []xml.Attr{{Name: xml.Name{Local: attrID}, Value: FormatID(task.ID())}},
	}
	if err := enc.EncodeToken(todo); err != nil {
		return err
	}

	if err := writeField(enc, elemName, task.Name()); err != nil {
		return err
	}
	if err := writeField(enc, elemDesc, task.Description()); err != nil {
		return err
	}
	if task.Completed() {
		completed := start(elemCompleted)
		if err := encodeTokens(enc, completed, completed.End()); err != nil {
			return err
		}
	}

	if children := task.Children(); len(children) > 0 {
		dependsOn := start(elemDependsOn)
		if err := enc.EncodeToken(dependsOn); err != nil {
			return err
		}
		for _, cid := range children {
			ref := xml.StartElement{
				Name: xml.Name{Local: elemTodo},
				Attr: []xml.Attr{{Name: xml.Name{Local: attrRef}, Value: FormatID(cid)}},
			}
			if err := encodeTokens(enc, ref, ref.End()); err != nil {
				return err
			}
		}
		if err := enc.EncodeToken(dependsOn.End()); err != nil {
			return err
		}
	}

	if date := task.DueDate(); date != nil {
		due := start(elemDue)
		if err := enc.EncodeToken(due); err != nil {
			return err
		}
		if err := writeField(enc, elemDate, models.FormatDate(*date)); err != nil {
			return err
		}
		if tod := task.DueTime(); tod != nil {
			if err := writeField(enc, elemTime, tod.String()); err != nil {
				return err
			}
		}
		if err := enc.EncodeToken(due.End()); err != nil {
			return err
		}
	}

	return enc.EncodeToken(todo.End())
}

// checkTodoText rejects names and descriptions that encoding/xml would
// silently rewrite to U+FFFD.
func checkTodoText(task *models.Task) error {
	if err := checkText(task.Name()); err != nil {
		return fmt.Errorf("%w: name of todo %s: %v", models.ErrIllegalArgument, task.ID(), err)
	}
	if err := checkText(task.Description()); err != nil {
		return fmt.Errorf("%w: description of todo %s: %v", models.ErrIllegalArgument, task.ID(), err)
	}
	return nil
}

func checkText(s string) error {
	for i, r := range s {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(s[i:]); size == 1 {
				return fmt.Errorf("invalid UTF-8 at byte %d", i)
			}
		}
		if !isXMLChar(r) {
			return fmt.Errorf("character %U at byte %d is not allowed in XML", r, i)
		}
	}
	return nil
}

// isXMLChar reports whether r is in the XML 1.0 Char production.
func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}

func writeField(enc *xml.Encoder, name, value string) error {
	el := start(name)
	return encodeTokens(enc, el, xml.CharData(value), el.End())
}

func start(name string) xml.StartElement {
	return xml.StartElement{Name: xml.Name{Local: name}}
}

func encodeTokens(enc *xml.Encoder, tokens ...xml.Token) error {
	for _, tok := range tokens {
		if err := enc.EncodeToken(tok); err != nil {
			return err
		}
	}
	return nil
}

// FormatID renders id as a document identifier ("_" followed by the UUID).
func FormatID(id uuid.UUID) string {
	return idPrefix + id.String()
}
