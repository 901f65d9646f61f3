package autofill

import (
	"fmt"

	"github.com/lance13c/shopassist/internal/store"
)

// Field is a logical checkout field
type Field string

const (
	FieldName       Field = "name"
	FieldPhone      Field = "phone"
	FieldAddress    Field = "address"
	FieldPostalCode Field = "postalCode"
)

// FieldPattern is the ordered selector list tried for one field
type FieldPattern struct {
	Field     Field
	Selectors []string
}

// DefaultPatterns covers English and Indonesian checkout forms. Detection
// order here is also the fill order.
var DefaultPatterns = []FieldPattern{
	{
		Field: FieldName,
		Selectors: []string{
			`input[name*="name"]`,
			`input[placeholder*="nama"]`,
			`input[id*="name"]`,
			`input[autocomplete="name"]`,
		},
	},
	{
		Field: FieldPhone,
		Selectors: []string{
			`input[name*="phone"]`,
			`input[name*="telp"]`,
			`input[placeholder*="nomor"]`,
			`input[placeholder*="telepon"]`,
			`input[type="tel"]`,
			`input[autocomplete="tel"]`,
		},
	},
	{
		Field: FieldAddress,
		Selectors: []string{
			`textarea[name*="address"]`,
			`textarea[placeholder*="alamat"]`,
			`input[name*="address"]`,
			`input[placeholder*="alamat"]`,
			`textarea[autocomplete="street-address"]`,
		},
	},
	{
		Field: FieldPostalCode,
		Selectors: []string{
			`input[name*="postal"]`,
			`input[name*="zip"]`,
			`input[placeholder*="kode pos"]`,
			`input[autocomplete="postal-code"]`,
		},
	},
}

// ProfileValue returns the profile value written into field
func ProfileValue(p store.Profile, field Field) string {
	switch field {
	case FieldName:
		return p.Name
	case FieldPhone:
		return p.Phone
	case FieldAddress:
		return p.Address
	case FieldPostalCode:
		return p.PostalCode
	default:
		return ""
	}
}

// FieldMatch is one detected field
type FieldMatch struct {
	Field    Field
	Selector string
	Element  Element
}

func (m FieldMatch) String() string {
	return fmt.Sprintf("%s <- %s (%s)", m.Field, m.Selector, m.Element.Describe())
}

// FieldMap holds detected fields in detection order. It is built per fill
// attempt and never persisted.
type FieldMap []FieldMatch

// Get returns the element detected for field
func (m FieldMap) Get(field Field) (Element, bool) {
	for _, match := range m {
		if match.Field == field {
			return match.Element, true
		}
	}
	return nil, false
}

// Fields lists the detected field names in order
func (m FieldMap) Fields() []Field {
	fields := make([]Field, 0, len(m))
	for _, match := range m {
		fields = append(fields, match.Field)
	}
	return fields
}

// FieldNames is Fields as plain strings
func FieldNames(fields []Field) []string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, string(f))
	}
	return names
}
