// Package bot implements the storefront dialog: per-user state machine,
// navigation stack and screen rendering.
package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_shopbot/internal/domain"
	"github.com/fjod/go_shopbot/internal/notify"
	"github.com/fjod/go_shopbot/internal/session"
	"go.uber.org/zap"
)

type Catalog interface {
	CreateProduct(ctx context.Context, draft domain.ProductDraft) (*domain.Product, error)
	UpdateField(ctx context.Context, id int64, field domain.ProductField, value string) error
	DeleteProduct(ctx context.Context, id int64) error
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]*domain.Product, error)
}

type Cart interface {
	Add(ctx context.Context, userID, productID int64, variant string, qty int) error
	Increment(ctx context.Context, userID, productID int64, variant string) error
	Decrement(ctx context.Context, userID, productID int64, variant string) error
	Remove(ctx context.Context, userID, productID int64, variant string) error
	Clear(ctx context.Context, userID int64) error
	Rows(ctx context.Context, userID int64) ([]domain.CartRow, error)
}

type Orders interface {
	Confirm(ctx context.Context, userID int64) (*domain.Order, error)
	ListOrders(ctx context.Context, userID int64) ([]*domain.Order, error)
	Stats(ctx context.Context) (*domain.Stats, error)
}

type Users interface {
	Register(ctx context.Context, userID int64, name, phone string) (*domain.User, error)
	IsRegistered(ctx context.Context, userID int64) (bool, error)
}

// Broadcaster starts a fan-out to every registered user and reports the
// tally to the admin when it ends.
type Broadcaster interface {
	Start(ctx context.Context, adminID int64, msg notify.Message) (int, error)
}

type Deps struct {
	Catalog     Catalog
	Cart        Cart
	Orders      Orders
	Users       Users
	Broadcaster Broadcaster
	Sessions    session.Store
}

type Options struct {
	AdminIDs   []int64
	AdminPhone string
}

type Bot struct {
	catalog   Catalog
	cart      Cart
	orders    Orders
	users     Users
	broadcast Broadcaster
	sessions  session.Store

	admins     map[int64]struct{}
	adminPhone string
	locks      *keyedMutex
	log        *zap.Logger
}

func New(deps Deps, opts Options, log *zap.Logger) *Bot {
	if log == nil {
		log = zap.NewNop()
	}
	admins := make(map[int64]struct{}, len(opts.AdminIDs))
	for _, id := range opts.AdminIDs {
		admins[id] = struct{}{}
	}
	return &Bot{
		catalog:    deps.Catalog,
		cart:       deps.Cart,
		orders:     deps.Orders,
		users:      deps.Users,
		broadcast:  deps.Broadcaster,
		sessions:   deps.Sessions,
		admins:     admins,
		adminPhone: opts.AdminPhone,
		locks:      newKeyedMutex(),
		log:        log,
	}
}

func (b *Bot) isAdmin(uid int64) bool {
	_, ok := b.admins[uid]
	return ok
}

// Handle processes one event for its user. Events of the same user are
// handled one at a time; the session is loaded before and saved after.
// A returned error means the session could not be loaded or saved.
func (b *Bot) Handle(ctx context.Context, ev Event) (replies []Reply, err error) {
	unlock := b.locks.Lock(ev.UserID)
	defer unlock()

	log := b.log.With(zap.Int64("user_id", ev.UserID), zap.String("event", string(ev.Kind)))

	sess, err := b.loadSession(ctx, ev.UserID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	replies = b.dispatchSafely(ctx, sess, ev, log)

	if err := b.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return replies, nil
}

func (b *Bot) dispatchSafely(ctx context.Context, sess *domain.Session, ev Event, log *zap.Logger) (replies []Reply) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("handler panicked", zap.Any("panic", r), zap.Stack("stack"))
			sess.Reset()
			replies = []Reply{textReply(msgSomethingWrong)}
		}
	}()

	replies, err := b.dispatch(ctx, sess, ev)
	if err != nil {
		log.Error("handler failed", zap.String("state", sess.State.String()), zap.Error(err))
		return []Reply{textReply(msgSomethingWrong)}
	}
	return replies
}

func (b *Bot) loadSession(ctx context.Context, uid int64) (*domain.Session, error) {
	sess, err := b.sessions.Get(ctx, uid)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, session.ErrSessionNotFound) {
		return nil, err
	}

	if b.isAdmin(uid) {
		return domain.NewSession(uid, domain.StateIdle), nil
	}
	registered, err := b.users.IsRegistered(ctx, uid)
	if err != nil {
		return nil, err
	}
	if registered {
		return domain.NewSession(uid, domain.StateIdle), nil
	}
	return domain.NewSession(uid, domain.StateAwaitingName), nil
}

func (b *Bot) dispatch(ctx context.Context, sess *domain.Session, ev Event) ([]Reply, error) {
	switch ev.Kind {
	case EventCommand:
		return b.handleCommand(ctx, sess, ev.Text)
	case EventSelection:
		return b.handleSelection(ctx, sess, ev.Action)
	case EventContact:
		return b.handleContact(ctx, sess, ev.Contact)
	case EventMedia:
		return b.handleMedia(ctx, sess, ev.Media)
	case EventText:
		return b.handleText(ctx, sess, ev.Text)
	}
	return []Reply{textReply(msgUnknownAction)}, nil
}
