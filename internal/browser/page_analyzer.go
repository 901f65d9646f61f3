package browser

import (
	"context"
	"fmt"
)

// controlsScript lists the form controls of the page with the same fields
// StaticDocument.Controls reports
const controlsScript = `(function() {
	function visible(el) {
		if (el.type === 'hidden' || el.hidden) return false;
		const style = window.getComputedStyle(el);
		if (style.display === 'none' || style.visibility === 'hidden') return false;
		const rect = el.getBoundingClientRect();
		return rect.width > 0 || rect.height > 0;
	}

	return Array.from(document.querySelectorAll('input, textarea, select')).map(el => ({
		tag: el.tagName.toLowerCase(),
		name: el.getAttribute('name') || '',
		id: el.id || '',
		type: el.getAttribute('type') || '',
		placeholder: el.getAttribute('placeholder') || '',
		autocomplete: el.getAttribute('autocomplete') || '',
		visible: visible(el)
	}));
})()`

type pageControl struct {
	Tag          string `json:"tag"`
	Name         string `json:"name"`
	ID           string `json:"id"`
	Type         string `json:"type"`
	Placeholder  string `json:"placeholder"`
	Autocomplete string `json:"autocomplete"`
	Visible      bool   `json:"visible"`
}

// Controls lists the form controls of the live page in document order
func (d *PageDocument) Controls(ctx context.Context) ([]FormControl, error) {
	var raw []pageControl
	if err := d.eval(ctx, controlsScript, &raw); err != nil {
		return nil, fmt.Errorf("failed to list page controls: %w", err)
	}

	controls := make([]FormControl, 0, len(raw))
	for _, c := range raw {
		controls = append(controls, FormControl(c))
	}
	return controls, nil
}

// Title returns the page title and current URL
func (d *PageDocument) Title(ctx context.Context) (title, url string, err error) {
	url, title, err = d.m.GetPageInfo(ctx)
	return title, url, err
}
