package browser

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/lance13c/shopassist/internal/autofill"
)

// StaticDocument is an auto-fill target backed by parsed HTML instead of a
// live page. Writes change the parsed tree, so Render returns the filled form.
// There is no layout, so visibility comes from markup: hidden attributes,
// type="hidden", and inline display, visibility, width and height styles.
type StaticDocument struct {
	mu     sync.Mutex
	doc    *goquery.Document
	source string
	active *html.Node
	events map[*html.Node][]autofill.Event
}

// NewStaticDocument parses r; source names the document in logs
func NewStaticDocument(r io.Reader, source string) (*StaticDocument, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML with goquery: %w", err)
	}
	return &StaticDocument{
		doc:    doc,
		source: source,
		events: make(map[*html.Node][]autofill.Event),
	}, nil
}

// ParseStaticDocument parses an HTML string
func ParseStaticDocument(content string) (*StaticDocument, error) {
	return NewStaticDocument(strings.NewReader(content), "inline")
}

// LoadStaticDocument reads and parses an HTML file
func LoadStaticDocument(path string) (*StaticDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return NewStaticDocument(f, path)
}

// Source is the name the document was loaded from
func (d *StaticDocument) Source() string {
	return d.source
}

// Lookup implements autofill.Document
func (d *StaticDocument) Lookup(ctx context.Context, selector string) (autofill.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	el, err := d.find(selector)
	if err != nil || el == nil {
		return nil, err
	}
	return el, nil
}

// Find returns the first element matching selector, or nil
func (d *StaticDocument) Find(selector string) *StaticElement {
	el, _ := d.find(selector)
	return el
}

// find returns nil when nothing matches; an invalid selector matches nothing
func (d *StaticDocument) find(selector string) (*StaticElement, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sel := d.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, nil
	}
	return &StaticElement{doc: d, node: sel.Nodes[0]}, nil
}

// IsVisible implements autofill.Document
func (d *StaticDocument) IsVisible(ctx context.Context, el autofill.Element) (bool, error) {
	se, ok := el.(*StaticElement)
	if !ok || se.doc != d {
		return false, ErrForeignElement
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return nodeVisible(se.node), nil
}

// Render returns the document HTML including every value written so far
func (d *StaticDocument) Render() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Html()
}

// ActiveElement returns the element holding focus, or nil
func (d *StaticDocument) ActiveElement() *StaticElement {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == nil {
		return nil
	}
	return &StaticElement{doc: d, node: d.active}
}

// FormControl summarizes one input, textarea or select
type FormControl struct {
	Tag          string
	Name         string
	ID           string
	Type         string
	Placeholder  string
	Autocomplete string
	Visible      bool
}

func (c FormControl) String() string {
	var parts []string
	add := func(key, val string) {
		if val != "" {
			parts = append(parts, fmt.Sprintf("%s=%q", key, val))
		}
	}
	add("name", c.Name)
	add("id", c.ID)
	add("type", c.Type)
	add("placeholder", c.Placeholder)
	add("autocomplete", c.Autocomplete)
	if !c.Visible {
		parts = append(parts, "hidden")
	}
	return fmt.Sprintf("<%s %s>", c.Tag, strings.Join(parts, " "))
}

// Controls lists the form controls in document order
func (d *StaticDocument) Controls() []FormControl {
	d.mu.Lock()
	defer d.mu.Unlock()

	var controls []FormControl
	d.doc.Find("input, textarea, select").Each(func(i int, s *goquery.Selection) {
		controls = append(controls, FormControl{
			Tag:          goquery.NodeName(s),
			Name:         s.AttrOr("name", ""),
			ID:           s.AttrOr("id", ""),
			Type:         s.AttrOr("type", ""),
			Placeholder:  s.AttrOr("placeholder", ""),
			Autocomplete: s.AttrOr("autocomplete", ""),
			Visible:      nodeVisible(s.Nodes[0]),
		})
	})
	return controls
}

// StaticElement is a node of a StaticDocument
type StaticElement struct {
	doc  *StaticDocument
	node *html.Node
}

func (e *StaticElement) selection() *goquery.Selection {
	return e.doc.doc.FindNodes(e.node)
}

// Describe implements autofill.Element
func (e *StaticElement) Describe() string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	for _, key := range []string{"name", "id"} {
		if v := attr(e.node, key); v != "" {
			return v
		}
	}
	return e.node.Data
}

// Focus implements autofill.Element
func (e *StaticElement) Focus(ctx context.Context) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.doc.active = e.node
	return nil
}

// SetValue implements autofill.Element
func (e *StaticElement) SetValue(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	sel := e.selection()
	switch e.node.DataAtom {
	case atom.Textarea:
		sel.SetText(value)
	case atom.Select:
		sel.Find("option").RemoveAttr("selected")
		sel.Find("option").FilterFunction(func(i int, o *goquery.Selection) bool {
			return o.AttrOr("value", o.Text()) == value
		}).First().SetAttr("selected", "selected")
	default:
		sel.SetAttr("value", value)
	}
	return nil
}

// Notify implements autofill.Element by recording the events
func (e *StaticElement) Notify(ctx context.Context, events []autofill.Event) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.doc.events[e.node] = append(e.doc.events[e.node], events...)
	return nil
}

// Blur implements autofill.Element
func (e *StaticElement) Blur(ctx context.Context) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if e.doc.active == e.node {
		e.doc.active = nil
	}
	return nil
}

// Value returns the current value of the control
func (e *StaticElement) Value() string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	sel := e.selection()
	switch e.node.DataAtom {
	case atom.Textarea:
		return sel.Text()
	case atom.Select:
		opt := sel.Find("option[selected]").First()
		return opt.AttrOr("value", opt.Text())
	default:
		return sel.AttrOr("value", "")
	}
}

// Events returns the events delivered to this element so far
func (e *StaticElement) Events() []autofill.Event {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return append([]autofill.Event(nil), e.doc.events[e.node]...)
}

// Focused reports whether the element holds focus
func (e *StaticElement) Focused() bool {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.doc.active == e.node
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// nodeVisible approximates a rendered box from markup alone
func nodeVisible(n *html.Node) bool {
	if n.DataAtom == atom.Input && strings.EqualFold(attr(n, "type"), "hidden") {
		return false
	}

	style := parseStyle(attr(n, "style"))
	if isZero(style["width"]) && isZero(style["height"]) {
		return false
	}

	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		if hasAttr(cur, "hidden") {
			return false
		}
		style := parseStyle(attr(cur, "style"))
		if style["display"] == "none" || style["visibility"] == "hidden" {
			return false
		}
	}
	return true
}

func parseStyle(style string) map[string]string {
	decls := make(map[string]string)
	for _, decl := range strings.Split(style, ";") {
		key, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(val), "!important")))
		decls[key] = val
	}
	return decls
}

func isZero(v string) bool {
	switch strings.TrimSpace(v) {
	case "0", "0px", "0%", "0em", "0rem":
		return true
	}
	return false
}
