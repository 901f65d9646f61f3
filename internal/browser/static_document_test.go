package browser

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lance13c/shopassist/internal/autofill"
	"github.com/lance13c/shopassist/internal/store"
)

const checkoutHTML = `<!DOCTYPE html>
<html><body>
<form id="checkout">
  <input type="text" id="buyer_name" placeholder="Nama lengkap">
  <input type="tel" name="hp" placeholder="Nomor HP">
  <textarea name="shipping_address" placeholder="Alamat lengkap"></textarea>
  <input type="text" name="zip_code">
  <select name="payment"><option value="cod">COD</option><option value="transfer">Transfer</option></select>
</form>
</body></html>`

func mustParse(t *testing.T, content string) *StaticDocument {
	t.Helper()
	doc, err := ParseStaticDocument(content)
	require.NoError(t, err)
	return doc
}

func TestStaticDocument_LookupAndVisibility(t *testing.T) {
	doc := mustParse(t, `<div style="display: none"><input name="a"></div>
<input name="b" hidden>
<input name="c" type="hidden">
<input name="d" style="width:0;height:0px">
<input name="e" style="visibility:hidden !important">
<input name="f">
<input name="g" style="width:0">`)
	ctx := context.Background()

	want := map[string]bool{"a": false, "b": false, "c": false, "d": false, "e": false, "f": true, "g": true}
	for name, visible := range want {
		el, err := doc.Lookup(ctx, `input[name="`+name+`"]`)
		require.NoError(t, err)
		require.NotNil(t, el, name)

		got, err := doc.IsVisible(ctx, el)
		require.NoError(t, err)
		assert.Equal(t, visible, got, name)
	}

	el, err := doc.Lookup(ctx, `input[name="missing"]`)
	require.NoError(t, err)
	assert.Nil(t, el)
}

func TestStaticDocument_RejectsForeignElement(t *testing.T) {
	a := mustParse(t, `<input name="x">`)
	b := mustParse(t, `<input name="x">`)

	el, err := a.Lookup(context.Background(), `input`)
	require.NoError(t, err)

	_, err = b.IsVisible(context.Background(), el)
	assert.ErrorIs(t, err, ErrForeignElement)
}

func TestStaticDocument_WritesValues(t *testing.T) {
	doc := mustParse(t, checkoutHTML)
	ctx := context.Background()

	for selector, value := range map[string]string{
		`#buyer_name`:          "Budi",
		`textarea`:             "Jl. Merdeka 1 <RT 02>",
		`select[name=payment]`: "transfer",
	} {
		el := doc.Find(selector)
		require.NotNil(t, el, selector)
		require.NoError(t, el.SetValue(ctx, value))
		assert.Equal(t, value, el.Value(), selector)
	}

	out, err := doc.Render()
	require.NoError(t, err)
	assert.Contains(t, out, `value="Budi"`)
	assert.Contains(t, out, `Jl. Merdeka 1 &lt;RT 02&gt;`)
	assert.Contains(t, out, `<option value="transfer" selected="selected">`)
}

func TestStaticDocument_FocusAndBlur(t *testing.T) {
	doc := mustParse(t, checkoutHTML)
	ctx := context.Background()

	name := doc.Find(`#buyer_name`)
	phone := doc.Find(`input[type=tel]`)
	require.NoError(t, name.Focus(ctx))
	assert.True(t, name.Focused())

	require.NoError(t, phone.Focus(ctx))
	assert.False(t, name.Focused())

	require.NoError(t, name.Blur(ctx))
	assert.True(t, phone.Focused(), "blurring an unfocused element keeps focus elsewhere")
	require.NoError(t, phone.Blur(ctx))
	assert.Nil(t, doc.ActiveElement())
}

func TestStaticDocument_Controls(t *testing.T) {
	doc := mustParse(t, checkoutHTML+`<input type="hidden" name="csrf">`)

	controls := doc.Controls()
	require.Len(t, controls, 6)
	assert.Equal(t, "input", controls[0].Tag)
	assert.Equal(t, "buyer_name", controls[0].ID)
	assert.Equal(t, "textarea", controls[2].Tag)
	assert.False(t, controls[5].Visible)
	assert.Equal(t, `<input name="csrf" type="hidden" hidden>`, controls[5].String())
}

func TestStaticDocument_DetectsThirdSelector(t *testing.T) {
	// only input[id*="name"] matches the name field
	doc := mustParse(t, checkoutHTML)

	fields, err := autofill.NewDetector().Detect(context.Background(), doc)
	require.NoError(t, err)

	require.NotEmpty(t, fields)
	assert.Equal(t, autofill.FieldName, fields[0].Field)
	assert.Equal(t, `input[id*="name"]`, fields[0].Selector)
	assert.Equal(t, "buyer_name", fields[0].Element.Describe())
}

func TestStaticDocument_DetectIgnoresHiddenCandidate(t *testing.T) {
	doc := mustParse(t, `<form>
  <input type="hidden" name="phone_verified" value="1">
  <input type="tel" name="hp">
</form>`)

	fields, err := autofill.NewDetector().Detect(context.Background(), doc)
	require.NoError(t, err)

	el, ok := fields.Get(autofill.FieldPhone)
	require.True(t, ok)
	assert.Equal(t, "hp", el.Describe())
}

func TestStaticDocument_FillCheckout(t *testing.T) {
	doc := mustParse(t, checkoutHTML)
	engine := autofill.NewEngine(autofill.NewDetector(), autofill.NewExecutor(time.Millisecond))
	profile := store.Profile{Name: "Budi", Phone: "08123"}

	result, err := engine.FillForm(context.Background(), doc, profile, 10*time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, []autofill.Field{autofill.FieldName, autofill.FieldPhone, autofill.FieldAddress, autofill.FieldPostalCode}, result.Detected)
	assert.Equal(t, "Budi", doc.Find(`#buyer_name`).Value())
	assert.Equal(t, "08123", doc.Find(`input[type=tel]`).Value())
	assert.Empty(t, doc.Find(`textarea`).Value())
	assert.Empty(t, doc.Find(`input[name=zip_code]`).Value())
	assert.Empty(t, doc.Find(`textarea`).Events())
	assert.Nil(t, doc.ActiveElement())

	events := doc.Find(`#buyer_name`).Events()
	require.Len(t, events, 3)
	assert.Equal(t, autofill.Event{Kind: autofill.EventInput, Data: "Budi"}, events[0])

	out, err := doc.Render()
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, `value="08123"`))
}

func TestStaticDocument_FillNameAndPhoneOnly(t *testing.T) {
	doc := mustParse(t, `<form>
  <input type="text" name="name">
  <input type="tel">
</form>`)
	engine := autofill.NewEngine(autofill.NewDetector(), autofill.NewExecutor(time.Millisecond))
	profile := store.Profile{Name: "Budi", Phone: "08123"}

	start := time.Now()
	result, err := engine.FillForm(context.Background(), doc, profile, 100*time.Millisecond)
	elapsed := time.Since(start)
	require.NoError(t, err)

	assert.Equal(t, []autofill.Field{autofill.FieldName, autofill.FieldPhone}, result.Detected)
	assert.Equal(t, []autofill.Field{autofill.FieldName, autofill.FieldPhone}, result.Filled)
	assert.Empty(t, result.Skipped)
	assert.Equal(t, "Budi", doc.Find(`input[name=name]`).Value())
	assert.Equal(t, "08123", doc.Find(`input[type=tel]`).Value())
	// the phone write waits one delay after the name write
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.GreaterOrEqual(t, result.Duration, 100*time.Millisecond)
}

func TestLoadStaticDocument_MissingFile(t *testing.T) {
	_, err := LoadStaticDocument("/nonexistent/checkout.html")
	assert.Error(t, err)
}
