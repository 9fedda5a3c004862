// Package ledger reconstructs current amounts from append-only ledger entries.
package ledger

import (
	"strconv"
)

type fieldKind uint8

const (
	categoryField fieldKind = iota + 1
	namedField
)

// Named field keys that are not categories
const (
	MonthlyRent             = "monthlyRent"
	CowayWaterFilterExpense = "cowayWaterFilterExpense"
	LittleHotelierExpense   = "littleHotelierExpense"

	AirportShuttleRentIncome = "airportShuttleRentIncome"
	ThaiBusTourIncome        = "thaiBusTourIncome"
	CoVanKesselIncome        = "coVanKesselIncome"
)

// Field identifies what a ledger entry adjusts: either a category by id
// or a fixed named key. The zero Field is invalid.
type Field struct {
	kind       fieldKind
	categoryID int64
	name       string
}

// CategoryField returns the field of category id
func CategoryField(id int64) Field {
	return Field{kind: categoryField, categoryID: id}
}

// NamedField returns the field for a fixed key such as "monthlyRent"
func NamedField(key string) Field {
	return Field{kind: namedField, name: key}
}

// ParseField resolves a stored field name. Names made only of decimal digits
// are category ids, anything else is a named key.
func ParseField(s string) Field {
	if s == "" {
		return Field{}
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return NamedField(s)
		}
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// too many digits for an id
		return NamedField(s)
	}
	return CategoryField(id)
}

// IsZero reports whether f is the invalid zero Field
func (f Field) IsZero() bool { return f.kind == 0 }

// CategoryID returns the category id when f is a category field
func (f Field) CategoryID() (int64, bool) {
	return f.categoryID, f.kind == categoryField
}

// Name returns the key when f is a named field
func (f Field) Name() (string, bool) {
	return f.name, f.kind == namedField
}

// String returns the stored form of the field name
func (f Field) String() string {
	switch f.kind {
	case categoryField:
		return strconv.FormatInt(f.categoryID, 10)
	case namedField:
		return f.name
	}
	return ""
}
