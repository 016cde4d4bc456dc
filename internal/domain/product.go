package domain

import (
	"strconv"
	"strings"
	"time"
)

// Product is a catalog entry. Price is in the smallest currency unit.
type Product struct {
	ID        int64
	Name      string
	Price     int64
	Variants  []string
	ImageRef  string
	CreatedAt time.Time
}

func (p Product) HasVariants() bool {
	return len(p.Variants) > 0
}

// ProductField names an independently editable product attribute.
type ProductField string

const (
	FieldName     ProductField = "name"
	FieldPrice    ProductField = "price"
	FieldVariants ProductField = "variants"
	FieldImage    ProductField = "image"
)

func (f ProductField) Valid() bool {
	switch f {
	case FieldName, FieldPrice, FieldVariants, FieldImage:
		return true
	}
	return false
}

// ProductDraft collects product attributes across the add-product dialog.
type ProductDraft struct {
	WithVariants bool     `json:"with_variants" bson:"with_variants"`
	Name         string   `json:"name,omitempty" bson:"name,omitempty"`
	Price        int64    `json:"price,omitempty" bson:"price,omitempty"`
	Variants     []string `json:"variants,omitempty" bson:"variants,omitempty"`
	ImageRef     string   `json:"image_ref,omitempty" bson:"image_ref,omitempty"`
}

// Complete reports whether every attribute required before the image step is set.
func (d ProductDraft) Complete() bool {
	if d.Name == "" || d.Price <= 0 {
		return false
	}
	return !d.WithVariants || len(d.Variants) > 0
}

// ParseVariants splits admin input on commas. Blank input or the NoVariant
// sentinel yields nil, meaning the product has no variants.
func ParseVariants(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" || text == NoVariant {
		return nil
	}

	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(text, ",") {
		v := strings.TrimSpace(part)
		// "|" separates selection token parameters
		v = strings.ReplaceAll(v, "|", "/")
		if v == "" || v == NoVariant {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func JoinVariants(variants []string) string {
	return strings.Join(variants, ", ")
}

// ParseAmount accepts digits only and a positive value; used for prices and
// quantities.
func ParseAmount(text string) (int64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// FormatMoney renders an amount with space separated thousands: 120000 -> "120 000".
func FormatMoney(n int64) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := strconv.FormatInt(n, 10)

	var b strings.Builder
	b.WriteString(sign)
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(d)
	}
	return b.String()
}
