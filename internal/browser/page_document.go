package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/lance13c/shopassist/internal/autofill"
	"github.com/lance13c/shopassist/internal/messaging"
)

// refAttr tags elements handed out by Lookup so later calls can find them again
const refAttr = "data-shopassist-ref"

// PageDocument is the live tab seen as an auto-fill target
type PageDocument struct {
	m *ChromeDPManager
}

// PageElement is an element of the live tab, addressed by its ref tag
type PageElement struct {
	doc  *PageDocument
	ref  string
	desc string
}

func userGesture(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithUserGesture(true)
}

func (d *PageDocument) eval(ctx context.Context, script string, res interface{}) error {
	return d.m.run(ctx, chromedp.Evaluate(script, res, userGesture))
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// Lookup implements autofill.Document
func (d *PageDocument) Lookup(ctx context.Context, selector string) (autofill.Element, error) {
	script := fmt.Sprintf(`(() => {
  let el;
  try { el = document.querySelector(%s); } catch (e) { return ""; }
  if (!el) return "";
  if (!el.hasAttribute(%s)) {
    window.__shopassistSeq = (window.__shopassistSeq || 0) + 1;
    el.setAttribute(%s, String(window.__shopassistSeq));
  }
  return el.getAttribute(%s) + "|" + (el.name || el.id || el.tagName.toLowerCase());
})()`, jsString(selector), jsString(refAttr), jsString(refAttr), jsString(refAttr))

	var found string
	if err := d.eval(ctx, script, &found); err != nil {
		return nil, err
	}
	if found == "" {
		return nil, nil
	}

	ref, desc, _ := strings.Cut(found, "|")
	return &PageElement{doc: d, ref: ref, desc: desc}, nil
}

// IsVisible implements autofill.Document
func (d *PageDocument) IsVisible(ctx context.Context, el autofill.Element) (bool, error) {
	pe, ok := el.(*PageElement)
	if !ok || pe.doc != d {
		return false, ErrForeignElement
	}

	var visible bool
	script := pe.script(`return !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);`)
	if err := d.eval(ctx, script, &visible); err != nil {
		return false, err
	}
	return visible, nil
}

// PostMessage delivers msg to the page over window.postMessage and the
// shop-assistant BroadcastChannel
func (d *PageDocument) PostMessage(ctx context.Context, msg messaging.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	script := fmt.Sprintf(`(() => {
  const msg = %s;
  window.postMessage(msg, "*");
  if ("BroadcastChannel" in window) {
    const ch = new BroadcastChannel(%s);
    ch.postMessage(msg);
    ch.close();
  }
  return true;
})()`, payload, jsString(messaging.Channel))

	var ok bool
	return d.eval(ctx, script, &ok)
}

// script wraps body so it runs with el bound to the tagged element; the
// wrapper yields false when the element is gone
func (e *PageElement) script(body string) string {
	return fmt.Sprintf(`(() => {
  const el = document.querySelector(%s);
  if (!el) return false;
  %s
})()`, jsString(fmt.Sprintf(`[%s="%s"]`, refAttr, e.ref)), body)
}

func (e *PageElement) do(ctx context.Context, body string) error {
	var ok bool
	if err := e.doc.eval(ctx, e.script(body+"\n  return true;"), &ok); err != nil {
		return err
	}
	if !ok {
		return ErrElementDetached
	}
	return nil
}

// Describe implements autofill.Element
func (e *PageElement) Describe() string {
	return e.desc
}

// Focus implements autofill.Element
func (e *PageElement) Focus(ctx context.Context) error {
	return e.do(ctx, `el.focus();`)
}

// SetValue writes through the native value setter so frameworks that wrap
// the value property still observe the change
func (e *PageElement) SetValue(ctx context.Context, value string) error {
	return e.do(ctx, fmt.Sprintf(`const value = %s;
  const proto = el instanceof HTMLTextAreaElement ? HTMLTextAreaElement.prototype
    : el instanceof HTMLSelectElement ? HTMLSelectElement.prototype
    : HTMLInputElement.prototype;
  const desc = Object.getOwnPropertyDescriptor(proto, "value");
  if (desc && desc.set) { desc.set.call(el, value); } else { el.value = value; }`, jsString(value)))
}

type wireEvent struct {
	Kind string `json:"kind"`
	Data string `json:"data,omitempty"`
}

// Notify implements autofill.Element
func (e *PageElement) Notify(ctx context.Context, events []autofill.Event) error {
	wire := make([]wireEvent, 0, len(events))
	for _, ev := range events {
		wire = append(wire, wireEvent{Kind: string(ev.Kind), Data: ev.Data})
	}
	payload, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("failed to encode events: %w", err)
	}

	return e.do(ctx, fmt.Sprintf(`for (const ev of %s) {
    let e;
    if (ev.kind === "input") {
      e = new InputEvent("input", {bubbles: true, cancelable: true, data: ev.data || null, inputType: "insertText"});
    } else if (ev.kind === "keyup") {
      e = new KeyboardEvent("keyup", {bubbles: true, cancelable: true});
    } else {
      e = new Event(ev.kind, {bubbles: true, cancelable: true});
    }
    el.dispatchEvent(e);
  }`, payload))
}

// Blur implements autofill.Element
func (e *PageElement) Blur(ctx context.Context) error {
	return e.do(ctx, `el.blur();`)
}
