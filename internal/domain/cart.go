package domain

import "strings"

// NoVariant is the stored variant of a cart line for a product without variants.
const NoVariant = "-"

// NormalizeVariant maps every spelling of "no variant" onto NoVariant so that
// lookups, increments and deletes address the same cart line.
func NormalizeVariant(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return NoVariant
	}
	return v
}

type CartLine struct {
	UserID    int64
	ProductID int64
	Variant   string
	Quantity  int
}

// CartRow is a cart line joined with the live catalog name and price.
type CartRow struct {
	ProductID int64
	Variant   string
	Quantity  int
	Name      string
	Price     int64
}

func (r CartRow) Subtotal() int64 {
	return r.Price * int64(r.Quantity)
}

func (r CartRow) HasVariant() bool {
	return r.Variant != NoVariant
}

func CartTotal(rows []CartRow) int64 {
	var total int64
	for _, r := range rows {
		total += r.Subtotal()
	}
	return total
}
