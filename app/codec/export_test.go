package codec

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"
	"testing"
	"time"

	"nought/app/models"
)

func exportString(t *testing.T, store *models.Store) string {
	t.Helper()
	var buf bytes.Buffer
	if err := NewExporter(store).Export(&buf); err != nil {
		t.Fatalf("export: %v", err)
	}
	return buf.String()
}

func build(t *testing.T, b *models.Builder) *models.Task {
	t.Helper()
	task, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return task
}

// docEvent is a definition or reference seen in an exported document.
type docEvent struct {
	kind string // "id" or "ref"
	id   string
}

func scanDocument(t *testing.T, doc string) []docEvent {
	t.Helper()
	var events []docEvent
	dec := xml.NewDecoder(strings.NewReader(doc))
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		el, ok := tok.(xml.StartElement)
		if !ok || el.Name.Local != "todo" {
			continue
		}
		for _, a := range el.Attr {
			if a.Name.Local == "id" || a.Name.Local == "ref" {
				events = append(events, docEvent{kind: a.Name.Local, id: a.Value})
			}
		}
	}
	return events
}

func TestExportEmptyStore(t *testing.T) {
	doc := exportString(t, models.NewStore())
	if !strings.HasPrefix(doc, xml.Header) {
		t.Errorf("missing xml declaration:\n%s", doc)
	}
	for _, want := range []string{`<nought xmlns="` + Namespace + `">`, "<todos>", "</todos>", "</nought>"} {
		if !strings.Contains(doc, want) {
			t.Errorf("missing %q:\n%s", want, doc)
		}
	}
	if _, err := Load(strings.NewReader(doc)); err != nil {
		t.Fatalf("empty export does not re-import: %v", err)
	}
}

func TestExportSingleTodo(t *testing.T) {
	store := models.NewStore()
	date := time.Date(2038, 1, 19, 0, 0, 0, 0, time.UTC)
	tod := models.NewTimeOfDay(4, 20, 42)
	task := build(t, store.NewBuilder().NewID().Name("test").Description("what").
		Completed(true).DueDate(&date).DueTime(&tod))

	doc := exportString(t, store)
	for _, want := range []string{
		`<todo id="_` + task.ID().String() + `">`,
		"<name>test</name>",
		"<desc>what</desc>",
		"<completed></completed>",
		"<date>2038-01-19</date>",
		"<time>04:20:42</time>",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("missing %q:\n%s", want, doc)
		}
	}
	if strings.Contains(doc, "depends-on") {
		t.Errorf("childless todo must not have a depends-on block:\n%s", doc)
	}
}

func TestExportOmitsOptionalBlocks(t *testing.T) {
	store := models.NewStore()
	build(t, store.NewBuilder().NewID().Name("plain").Description(""))

	doc := exportString(t, store)
	for _, absent := range []string{"completed", "due", "depends-on", "<time>"} {
		if strings.Contains(doc, absent) {
			t.Errorf("unexpected %q:\n%s", absent, doc)
		}
	}
}

func TestExportEscapesText(t *testing.T) {
	store := models.NewStore()
	build(t, store.NewBuilder().NewID().Name(`a < b & "c"`).Description("line1\nline2"))

	doc := exportString(t, store)
	if strings.Contains(doc, "a < b") {
		t.Fatalf("text not escaped:\n%s", doc)
	}
	loaded, err := Load(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	for task := range loaded.All() {
		if task.Name() != `a < b & "c"` || task.Description() != "line1\nline2" {
			t.Fatalf("round trip changed text: %q / %q", task.Name(), task.Description())
		}
	}
}

func TestExportRejectsTextXMLCannotCarry(t *testing.T) {
	tests := []struct {
		name, desc string
	}{
		{"a\x01b", "ok"},
		{"ok", "bell\x07"},
		{"ok", "bad \xff utf-8"},
		{"nul\x00", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.desc, func(t *testing.T) {
			store := models.NewStore()
			task := build(t, store.NewBuilder().NewID().Name(tt.name).Description(tt.desc))

			var buf bytes.Buffer
			err := NewExporter(store).Export(&buf)
			if !errors.Is(err, models.ErrIllegalArgument) {
				t.Fatalf("got %v, want ErrIllegalArgument", err)
			}
			if !strings.Contains(err.Error(), task.ID().String()) {
				t.Errorf("error should name the todo: %v", err)
			}
			if buf.Len() != 0 {
				t.Errorf("partial document written: %q", buf.String())
			}
		})
	}
}

func TestExportKeepsReplacementCharacter(t *testing.T) {
	store := models.NewStore()
	build(t, store.NewBuilder().NewID().Name("tab\there \uFFFD").Description("line\nbreak"))

	loaded, err := Load(strings.NewReader(exportString(t, store)))
	if err != nil {
		t.Fatal(err)
	}
	for task := range loaded.All() {
		if task.Name() != "tab\there \uFFFD" || task.Description() != "line\nbreak" {
			t.Fatalf("got %q / %q", task.Name(), task.Description())
		}
	}
}

func TestExportChildrenBeforeParents(t *testing.T) {
	store := models.NewStore()
	// Parents are created first so store order is the reverse of the
	// required document order.
	root := build(t, store.NewBuilder().NewID().Name("root").Description(""))
	mid := build(t, store.NewBuilder().NewID().Name("mid").Description(""))
	leaf1 := build(t, store.NewBuilder().NewID().Name("leaf1").Description(""))
	leaf2 := build(t, store.NewBuilder().NewID().Name("leaf2").Description(""))
	for _, link := range []struct{ parent, child *models.Task }{
		{root, mid}, {mid, leaf1}, {mid, leaf2},
	} {
		if err := link.parent.AddChild(link.child); err != nil {
			t.Fatal(err)
		}
	}

	events := scanDocument(t, exportString(t, store))
	defined := map[string]int{}
	refs := 0
	for i, ev := range events {
		switch ev.kind {
		case "id":
			if _, dup := defined[ev.id]; dup {
				t.Fatalf("%s defined twice", ev.id)
			}
			defined[ev.id] = i
		case "ref":
			refs++
			if _, ok := defined[ev.id]; !ok {
				t.Fatalf("reference %s precedes its definition", ev.id)
			}
		}
	}
	if len(defined) != 4 {
		t.Fatalf("defined %d todos, want 4", len(defined))
	}
	if refs != 3 {
		t.Fatalf("found %d references, want 3", refs)
	}
}

func TestExportDanglingChild(t *testing.T) {
	store := models.NewStore()
	parent := build(t, store.NewBuilder().NewID().Name("p").Description(""))
	child := build(t, store.NewBuilder().NewID().Name("c").Description(""))
	if err := parent.AddChild(child); err != nil {
		t.Fatal(err)
	}
	// Simulate a child that vanished without being detached.
	other := models.NewStore()
	stray := build(t, other.NewBuilder().NewID().Name("stray").Description(""))
	if err := parent.AddChild(stray); err != nil {
		t.Fatal(err)
	}

	err := NewExporter(store).Export(&bytes.Buffer{})
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("got %v, want not found", err)
	}
}

func TestExportCycle(t *testing.T) {
	store := models.NewStore()
	a := build(t, store.NewBuilder().NewID().Name("a").Description(""))
	b := build(t, store.NewBuilder().NewID().Name("b").Description(""))
	if err := a.AddChild(b); err != nil {
		t.Fatal(err)
	}
	if err := b.AddChild(a); err != nil {
		t.Fatal(err)
	}

	err := NewExporter(store).Export(&bytes.Buffer{})
	if !errors.Is(err, models.ErrInvariantViolation) {
		t.Fatalf("got %v, want invariant violation", err)
	}
}
