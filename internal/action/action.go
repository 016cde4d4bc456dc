// Package action decodes and encodes the opaque selection tokens carried by
// inline buttons. Tokens are "kind|param|param" with a fixed arity per kind.
package action

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fjod/go_shopbot/internal/domain"
)

var ErrMalformedToken = errors.New("malformed action token")

const sep = "|"

type Kind string

const (
	Unknown Kind = "unknown"

	Noop     Kind = "noop"
	Back     Kind = "back"
	Menu     Kind = "menu"
	Catalog  Kind = "catalog"
	Product  Kind = "product"
	CartView Kind = "cart"
	Orders   Kind = "orders"

	CartAdd     Kind = "cart_add"
	CartInc     Kind = "cart_inc"
	CartDec     Kind = "cart_dec"
	CartDel     Kind = "cart_del"
	CartClear   Kind = "cart_clear"
	CartConfirm Kind = "cart_confirm"

	AdminHome      Kind = "admin"
	AdminAdd       Kind = "admin_add"
	AdminAddMode   Kind = "admin_add_mode"
	AdminManage    Kind = "admin_manage"
	AdminEdit      Kind = "admin_edit"
	AdminField     Kind = "admin_field"
	AdminDeleteAsk Kind = "admin_delete_ask"
	AdminDelete    Kind = "admin_delete"
	AdminBroadcast Kind = "admin_broadcast"
	AdminStats     Kind = "admin_stats"
)

type shape int

const (
	shapeNone shape = iota
	shapeProduct
	shapeProductVariant
	shapeFlag
	shapeField
)

var shapes = map[Kind]shape{
	Noop:           shapeNone,
	Back:           shapeNone,
	Menu:           shapeNone,
	Catalog:        shapeNone,
	CartView:       shapeNone,
	Orders:         shapeNone,
	CartClear:      shapeNone,
	CartConfirm:    shapeNone,
	AdminHome:      shapeNone,
	AdminAdd:       shapeNone,
	AdminManage:    shapeNone,
	AdminDeleteAsk: shapeNone,
	AdminBroadcast: shapeNone,
	AdminStats:     shapeNone,
	Product:        shapeProduct,
	AdminEdit:      shapeProduct,
	AdminDelete:    shapeProduct,
	CartAdd:        shapeProductVariant,
	CartInc:        shapeProductVariant,
	CartDec:        shapeProductVariant,
	CartDel:        shapeProductVariant,
	AdminAddMode:   shapeFlag,
	AdminField:     shapeField,
}

func (s shape) arity() int {
	switch s {
	case shapeProduct, shapeFlag, shapeField:
		return 1
	case shapeProductVariant:
		return 2
	}
	return 0
}

// Action is a decoded selection. Only the fields used by Kind are set.
type Action struct {
	Kind      Kind
	ProductID int64
	Variant   string
	Field     domain.ProductField
	Flag      bool
}

// IsAdmin reports whether the action is reserved for administrators.
func (a Action) IsAdmin() bool {
	return strings.HasPrefix(string(a.Kind), "admin")
}

// Parse decodes a token. Any deviation from the kind's arity or parameter
// types yields ErrMalformedToken.
func Parse(token string) (Action, error) {
	token = strings.TrimSpace(token)
	head, rest, hasParams := strings.Cut(token, sep)
	kind := Kind(head)

	sh, ok := shapes[kind]
	if !ok {
		return Action{Kind: Unknown}, fmt.Errorf("%w: unknown kind %q", ErrMalformedToken, head)
	}

	var params []string
	if hasParams {
		// one extra slot so that surplus parameters are detected
		params = strings.SplitN(rest, sep, sh.arity()+1)
	}
	if len(params) != sh.arity() {
		return Action{Kind: Unknown}, fmt.Errorf("%w: %s expects %d params, got %d", ErrMalformedToken, kind, sh.arity(), len(params))
	}

	a := Action{Kind: kind}
	switch sh {
	case shapeProduct:
		id, err := parseID(params[0])
		if err != nil {
			return Action{Kind: Unknown}, err
		}
		a.ProductID = id
	case shapeProductVariant:
		id, err := parseID(params[0])
		if err != nil {
			return Action{Kind: Unknown}, err
		}
		a.ProductID = id
		a.Variant = domain.NormalizeVariant(params[1])
	case shapeFlag:
		switch params[0] {
		case "1":
			a.Flag = true
		case "0":
			a.Flag = false
		default:
			return Action{Kind: Unknown}, fmt.Errorf("%w: bad flag %q", ErrMalformedToken, params[0])
		}
	case shapeField:
		f := domain.ProductField(params[0])
		if !f.Valid() {
			return Action{Kind: Unknown}, fmt.Errorf("%w: bad field %q", ErrMalformedToken, params[0])
		}
		a.Field = f
	}
	return a, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad id %q", ErrMalformedToken, s)
	}
	return id, nil
}

// Token encodes the action back into its wire form.
func (a Action) Token() string {
	switch shapes[a.Kind] {
	case shapeProduct:
		return fmt.Sprintf("%s|%d", a.Kind, a.ProductID)
	case shapeProductVariant:
		return fmt.Sprintf("%s|%d|%s", a.Kind, a.ProductID, domain.NormalizeVariant(a.Variant))
	case shapeFlag:
		if a.Flag {
			return string(a.Kind) + "|1"
		}
		return string(a.Kind) + "|0"
	case shapeField:
		return fmt.Sprintf("%s|%s", a.Kind, a.Field)
	}
	return string(a.Kind)
}

func Of(kind Kind) Action {
	return Action{Kind: kind}
}

func ForProduct(kind Kind, productID int64) Action {
	return Action{Kind: kind, ProductID: productID}
}

func ForLine(kind Kind, productID int64, variant string) Action {
	return Action{Kind: kind, ProductID: productID, Variant: domain.NormalizeVariant(variant)}
}

func AddMode(withVariants bool) Action {
	return Action{Kind: AdminAddMode, Flag: withVariants}
}

func EditField(f domain.ProductField) Action {
	return Action{Kind: AdminField, Field: f}
}
