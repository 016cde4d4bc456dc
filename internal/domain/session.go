package domain

import "time"

type DialogState string

const (
	StateIdle          DialogState = "IDLE"
	StateAwaitingName  DialogState = "AWAITING_NAME"
	StateAwaitingPhone DialogState = "AWAITING_PHONE"
	StateAwaitingQty   DialogState = "AWAITING_QTY"

	StateAddChooseVariantMode DialogState = "ADD_CHOOSE_VARIANT_MODE"
	StateAddName              DialogState = "ADD_NAME"
	StateAddPrice             DialogState = "ADD_PRICE"
	StateAddVariants          DialogState = "ADD_VARIANTS"
	StateAddImage             DialogState = "ADD_IMAGE"
	StateEditName             DialogState = "EDIT_NAME"
	StateEditPrice            DialogState = "EDIT_PRICE"
	StateEditVariants         DialogState = "EDIT_VARIANTS"
	StateEditImage            DialogState = "EDIT_IMAGE"
	StateBroadcastText        DialogState = "BROADCAST_TEXT"
)

// IsAdminFlow reports whether the state belongs to an administrator flow.
func (s DialogState) IsAdminFlow() bool {
	switch s {
	case StateAddChooseVariantMode, StateAddName, StateAddPrice, StateAddVariants, StateAddImage,
		StateEditName, StateEditPrice, StateEditVariants, StateEditImage, StateBroadcastText:
		return true
	}
	return false
}

// IsUserFlow reports whether the state belongs to an ordinary user flow.
func (s DialogState) IsUserFlow() bool {
	switch s {
	case StateAwaitingName, StateAwaitingPhone, StateAwaitingQty:
		return true
	}
	return false
}

func (s DialogState) String() string {
	if s == "" {
		return string(StateIdle)
	}
	return string(s)
}

// EditFieldState maps a product field to the single-step state that edits it.
func EditFieldState(f ProductField) (DialogState, bool) {
	switch f {
	case FieldName:
		return StateEditName, true
	case FieldPrice:
		return StateEditPrice, true
	case FieldVariants:
		return StateEditVariants, true
	case FieldImage:
		return StateEditImage, true
	}
	return "", false
}

type ViewKind string

const (
	ViewMenu          ViewKind = "menu"
	ViewCatalog       ViewKind = "catalog"
	ViewProduct       ViewKind = "product"
	ViewCart          ViewKind = "cart"
	ViewQuantity      ViewKind = "quantity"
	ViewOrders        ViewKind = "orders"
	ViewAdmin         ViewKind = "admin"
	ViewAdminProducts ViewKind = "admin_products"
	ViewAdminProduct  ViewKind = "admin_product"
)

// View is the minimal description needed to re-render a screen.
type View struct {
	Kind      ViewKind `json:"kind" bson:"kind"`
	ProductID int64    `json:"product_id,omitempty" bson:"product_id,omitempty"`
	Variant   string   `json:"variant,omitempty" bson:"variant,omitempty"`
}

const MaxNavDepth = 20

// Session is the per-user conversational record. Scratch fields are only
// meaningful while State is the flow that set them.
type Session struct {
	UserID int64       `json:"user_id" bson:"user_id"`
	State  DialogState `json:"state" bson:"state"`

	RegName        string       `json:"reg_name,omitempty" bson:"reg_name,omitempty"`
	Draft          ProductDraft `json:"draft" bson:"draft"`
	EditTarget     int64        `json:"edit_target,omitempty" bson:"edit_target,omitempty"`
	PendingProduct int64        `json:"pending_product,omitempty" bson:"pending_product,omitempty"`
	PendingVariant string       `json:"pending_variant,omitempty" bson:"pending_variant,omitempty"`

	Nav       []View    `json:"nav,omitempty" bson:"nav,omitempty"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

func NewSession(userID int64, state DialogState) *Session {
	return &Session{
		UserID:    userID,
		State:     state,
		UpdatedAt: time.Now(),
	}
}

// Reset ends the current flow. Navigation history is kept.
func (s *Session) Reset() {
	s.State = StateIdle
	s.RegName = ""
	s.Draft = ProductDraft{}
	s.EditTarget = 0
	s.PendingProduct = 0
	s.PendingVariant = ""
}

func (s *Session) Push(v View) {
	if top, ok := s.Top(); ok && top == v {
		return
	}
	s.Nav = append(s.Nav, v)
	if len(s.Nav) > MaxNavDepth {
		s.Nav = append([]View(nil), s.Nav[len(s.Nav)-MaxNavDepth:]...)
	}
}

// Pop discards the current screen and returns the one beneath it.
// ok is false when nothing is left, in which case the menu applies.
func (s *Session) Pop() (View, bool) {
	if len(s.Nav) > 0 {
		s.Nav = s.Nav[:len(s.Nav)-1]
	}
	return s.Top()
}

func (s *Session) Top() (View, bool) {
	if len(s.Nav) == 0 {
		return View{}, false
	}
	return s.Nav[len(s.Nav)-1], true
}

func (s *Session) ClearNav() {
	s.Nav = nil
}
