package autofill

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect_UsesFirstVisibleSelector(t *testing.T) {
	doc := newFakeDocument()
	byID := doc.add(`input[id*="name"]`, newFakeElement("customer-name"))

	fields, err := NewDetector().Detect(context.Background(), doc)
	require.NoError(t, err)

	require.Len(t, fields, 1)
	assert.Equal(t, FieldName, fields[0].Field)
	assert.Equal(t, `input[id*="name"]`, fields[0].Selector)
	el, ok := fields.Get(FieldName)
	require.True(t, ok)
	assert.Same(t, byID, el)
}

func TestDetect_PrefersEarlierSelector(t *testing.T) {
	doc := newFakeDocument()
	first := doc.add(`input[name*="phone"]`, newFakeElement("phone"))
	doc.add(`input[type="tel"]`, newFakeElement("tel"))

	fields, err := NewDetector().Detect(context.Background(), doc)
	require.NoError(t, err)

	el, ok := fields.Get(FieldPhone)
	require.True(t, ok)
	assert.Same(t, first, el)
}

func TestDetect_SkipsHiddenCandidates(t *testing.T) {
	doc := newFakeDocument()
	hidden := doc.add(`input[name*="name"]`, newFakeElement("hidden-name"))
	hidden.visible = false
	visible := doc.add(`input[autocomplete="name"]`, newFakeElement("visible-name"))

	fields, err := NewDetector().Detect(context.Background(), doc)
	require.NoError(t, err)

	el, ok := fields.Get(FieldName)
	require.True(t, ok)
	assert.Same(t, visible, el)
}

func TestDetect_OnlyHiddenMeansAbsent(t *testing.T) {
	doc := newFakeDocument()
	doc.add(`input[name*="postal"]`, newFakeElement("postal")).visible = false

	fields, err := NewDetector().Detect(context.Background(), doc)
	require.NoError(t, err)

	_, ok := fields.Get(FieldPostalCode)
	assert.False(t, ok)
	assert.Empty(t, fields)
}

func TestDetect_EmptyDocument(t *testing.T) {
	fields, err := NewDetector().Detect(context.Background(), newFakeDocument())
	require.NoError(t, err)
	assert.Empty(t, fields)
	assert.Empty(t, fields.Fields())
}

func TestDetect_KeepsPatternOrder(t *testing.T) {
	doc := newFakeDocument()
	doc.add(`input[name*="zip"]`, newFakeElement("zip"))
	doc.add(`textarea[name*="address"]`, newFakeElement("address"))
	doc.add(`input[name*="name"]`, newFakeElement("name"))
	doc.add(`input[type="tel"]`, newFakeElement("tel"))

	fields, err := NewDetector().Detect(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, []Field{FieldName, FieldPhone, FieldAddress, FieldPostalCode}, fields.Fields())
	assert.Equal(t, []string{"name", "phone", "address", "postalCode"}, FieldNames(fields.Fields()))
}

func TestDetect_CustomPatterns(t *testing.T) {
	doc := newFakeDocument()
	el := doc.add(`#buyer`, newFakeElement("buyer"))

	detector := NewDetector(FieldPattern{Field: FieldName, Selectors: []string{`#buyer`}})
	fields, err := detector.Detect(context.Background(), doc)
	require.NoError(t, err)

	got, ok := fields.Get(FieldName)
	require.True(t, ok)
	assert.Same(t, el, got)
	assert.Equal(t, `name <- #buyer (buyer)`, fields[0].String())
}

func TestDetect_LookupErrorIsWrapped(t *testing.T) {
	doc := newFakeDocument()
	doc.lookupErr = errBoom

	_, err := NewDetector().Detect(context.Background(), doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), `input[name*="name"]`)
}

func TestWaitForFields_RetriesUntilFieldsAppear(t *testing.T) {
	base := newFakeDocument()
	base.add(`input[name*="name"]`, newFakeElement("name"))
	doc := &lateDocument{fakeDocument: base, appearAt: 2, firstSel: `input[name*="name"]`}

	fields, err := NewDetector().WaitForFields(context.Background(), doc, 5, time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, []Field{FieldName}, fields.Fields())
	assert.Equal(t, 3, doc.passes)
}

func TestWaitForFields_GivesUpAfterAttempts(t *testing.T) {
	base := newFakeDocument()
	base.add(`input[name*="name"]`, newFakeElement("name"))
	doc := &lateDocument{fakeDocument: base, appearAt: 10, firstSel: `input[name*="name"]`}

	fields, err := NewDetector().WaitForFields(context.Background(), doc, 3, time.Millisecond)
	require.NoError(t, err)

	assert.Empty(t, fields)
	assert.Equal(t, 3, doc.passes)
}

func TestWaitForFields_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDetector().WaitForFields(ctx, newFakeDocument(), 5, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
