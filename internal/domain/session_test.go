package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionNavigation_BackToMenu(t *testing.T) {
	s := NewSession(1, StateIdle)

	s.Push(View{Kind: ViewCatalog})
	s.Push(View{Kind: ViewProduct, ProductID: 1})

	top, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, View{Kind: ViewCatalog}, top)

	_, ok = s.Pop()
	assert.False(t, ok)

	// popping an empty stack stays empty
	for i := 0; i < 3; i++ {
		_, ok = s.Pop()
		assert.False(t, ok)
	}
	assert.Empty(t, s.Nav)
}

func TestSessionNavigation_PushSameViewTwice(t *testing.T) {
	s := NewSession(1, StateIdle)
	s.Push(View{Kind: ViewCart})
	s.Push(View{Kind: ViewCart})
	assert.Len(t, s.Nav, 1)
}

func TestSessionNavigation_DepthCapped(t *testing.T) {
	s := NewSession(1, StateIdle)
	for i := 1; i <= MaxNavDepth+5; i++ {
		s.Push(View{Kind: ViewProduct, ProductID: int64(i)})
	}
	assert.Len(t, s.Nav, MaxNavDepth)
	top, _ := s.Top()
	assert.Equal(t, int64(MaxNavDepth+5), top.ProductID)
}

func TestSessionReset_KeepsNavigation(t *testing.T) {
	s := NewSession(1, StateAddPrice)
	s.Draft = ProductDraft{Name: "Brick", Price: 10}
	s.EditTarget = 3
	s.PendingProduct = 4
	s.PendingVariant = "M"
	s.Push(View{Kind: ViewCatalog})

	s.Reset()

	assert.Equal(t, StateIdle, s.State)
	assert.Equal(t, ProductDraft{}, s.Draft)
	assert.Zero(t, s.EditTarget)
	assert.Zero(t, s.PendingProduct)
	assert.Empty(t, s.PendingVariant)
	assert.Len(t, s.Nav, 1)
}

func TestParseVariants(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"S, M ,L", []string{"S", "M", "L"}},
		{"-", nil},
		{"   ", nil},
		{"S,,M,S", []string{"S", "M"}},
		{"10x10|20", []string{"10x10/20"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseVariants(tt.in), tt.in)
	}
}

func TestNormalizeVariant(t *testing.T) {
	assert.Equal(t, NoVariant, NormalizeVariant(""))
	assert.Equal(t, NoVariant, NormalizeVariant("-"))
	assert.Equal(t, NoVariant, NormalizeVariant("  "))
	assert.Equal(t, "M", NormalizeVariant(" M "))
}

func TestOrderSnapshot_UsesRowPrices(t *testing.T) {
	rows := []CartRow{
		{ProductID: 1, Variant: "M", Quantity: 3, Name: "Brick", Price: 1000},
		{ProductID: 2, Variant: NoVariant, Quantity: 1, Name: "Cement", Price: 50000},
	}
	order := OrderSnapshot(7, rows)

	assert.Equal(t, int64(7), order.UserID)
	assert.Equal(t, int64(53000), order.Total)
	require.Len(t, order.Items, 2)
	assert.Equal(t, int64(1000), order.Items[0].UnitPrice)
	assert.Equal(t, CartTotal(rows), order.Total)
}

func TestProductDraftComplete(t *testing.T) {
	assert.False(t, ProductDraft{}.Complete())
	assert.False(t, ProductDraft{Name: "Cement"}.Complete())
	assert.True(t, ProductDraft{Name: "Cement", Price: 50000}.Complete())
	assert.False(t, ProductDraft{Name: "Brick", Price: 1000, WithVariants: true}.Complete())
	assert.True(t, ProductDraft{Name: "Brick", Price: 1000, WithVariants: true, Variants: []string{"S"}}.Complete())
}
