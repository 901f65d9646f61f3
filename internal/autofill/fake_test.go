package autofill

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errBoom = errors.New("boom")

type fakeCall struct {
	Op    string
	Value string
	At    time.Time
}

type fakeElement struct {
	mu       sync.Mutex
	name     string
	visible  bool
	value    string
	focused  bool
	events   []Event
	calls    []fakeCall
	failSet  error
	failBlur error
}

func newFakeElement(name string) *fakeElement {
	return &fakeElement{name: name, visible: true}
}

func (e *fakeElement) record(op, value string) {
	e.calls = append(e.calls, fakeCall{Op: op, Value: value, At: time.Now()})
}

func (e *fakeElement) Describe() string { return e.name }

func (e *fakeElement) Focus(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.focused = true
	e.record("focus", "")
	return nil
}

func (e *fakeElement) SetValue(ctx context.Context, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failSet != nil {
		return e.failSet
	}
	e.value = value
	e.record("set", value)
	return nil
}

func (e *fakeElement) Notify(ctx context.Context, events []Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, events...)
	e.record("notify", "")
	return nil
}

func (e *fakeElement) Blur(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failBlur != nil {
		return e.failBlur
	}
	e.focused = false
	e.record("blur", "")
	return nil
}

func (e *fakeElement) Value() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

func (e *fakeElement) Focused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.focused
}

func (e *fakeElement) Events() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Event(nil), e.events...)
}

func (e *fakeElement) Calls() []fakeCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]fakeCall(nil), e.calls...)
}

func (e *fakeElement) SetAt() time.Time {
	for _, c := range e.Calls() {
		if c.Op == "set" {
			return c.At
		}
	}
	return time.Time{}
}

// fakeDocument maps selectors straight to elements
type fakeDocument struct {
	mu        sync.Mutex
	elements  map[string]*fakeElement
	lookups   []string
	lookupErr error
}

func newFakeDocument() *fakeDocument {
	return &fakeDocument{elements: map[string]*fakeElement{}}
}

func (d *fakeDocument) add(selector string, el *fakeElement) *fakeElement {
	d.elements[selector] = el
	return el
}

func (d *fakeDocument) Lookup(ctx context.Context, selector string) (Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lookups = append(d.lookups, selector)
	if d.lookupErr != nil {
		return nil, d.lookupErr
	}
	el, ok := d.elements[selector]
	if !ok {
		return nil, nil
	}
	return el, nil
}

func (d *fakeDocument) IsVisible(ctx context.Context, el Element) (bool, error) {
	fe, ok := el.(*fakeElement)
	if !ok {
		return false, errors.New("foreign element")
	}
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.visible, nil
}

// lateDocument is empty for the first appearAt Detect passes
type lateDocument struct {
	*fakeDocument
	passes   int
	appearAt int
	firstSel string
}

func (d *lateDocument) Lookup(ctx context.Context, selector string) (Element, error) {
	if selector == d.firstSel {
		d.passes++
	}
	if d.passes <= d.appearAt {
		return nil, nil
	}
	return d.fakeDocument.Lookup(ctx, selector)
}
