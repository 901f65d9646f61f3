// Package autofill finds checkout fields in a document and writes profile
// values into them.
//
// The package never talks to a browser directly. A Document is the lookup
// capability (query by CSS selector, visibility check) and an Element is the
// write capability (focus, set value, notify observers, blur). The browser
// package provides a chromedp-backed page and a goquery-backed static HTML
// implementation.
package autofill

import "context"

// EventKind names a synthetic event delivered to page observers after a write
type EventKind string

const (
	EventInput  EventKind = "input"
	EventChange EventKind = "change"
	EventBlur   EventKind = "blur"
	EventKeyup  EventKind = "keyup"
)

// Event is one observer notification. Data is set for input events and
// carries the value just written.
type Event struct {
	Kind EventKind
	Data string
}

// Element is a writable form control found in a Document
type Element interface {
	// Describe returns the element's name or id for log output
	Describe() string
	Focus(ctx context.Context) error
	SetValue(ctx context.Context, value string) error
	// Notify delivers events to the element's observers in order
	Notify(ctx context.Context, events []Event) error
	Blur(ctx context.Context) error
}

// Document is the lookup side of a page
type Document interface {
	// Lookup returns the first element matching selector, or nil when none does
	Lookup(ctx context.Context, selector string) (Element, error)
	// IsVisible reports whether the element has a rendered size or client rects
	IsVisible(ctx context.Context, el Element) (bool, error)
}
