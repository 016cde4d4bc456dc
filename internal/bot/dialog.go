package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/fjod/go_shopbot/internal/action"
	"github.com/fjod/go_shopbot/internal/domain"
)

func (b *Bot) handleCommand(ctx context.Context, sess *domain.Session, text string) ([]Reply, error) {
	name := strings.TrimPrefix(strings.TrimSpace(text), "/")
	if fields := strings.Fields(name); len(fields) > 0 {
		name = strings.ToLower(fields[0])
	}

	switch name {
	case cmdStart:
		return b.start(ctx, sess)
	case cmdCancel:
		return b.cancel(ctx, sess)
	}
	return []Reply{textReply(msgUnknownCommand)}, nil
}

func (b *Bot) start(ctx context.Context, sess *domain.Session) ([]Reply, error) {
	sess.Reset()
	sess.ClearNav()

	if b.isAdmin(sess.UserID) {
		sess.Push(domain.View{Kind: domain.ViewAdmin})
		panel, err := b.render(ctx, sess.UserID, domain.View{Kind: domain.ViewAdmin})
		if err != nil {
			return nil, err
		}
		return []Reply{b.menuReply(sess.UserID, msgAdminWelcome), panel}, nil
	}

	registered, err := b.users.IsRegistered(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if !registered {
		sess.State = domain.StateAwaitingName
		return []Reply{{Text: msgAskName, RemoveMenu: true}}, nil
	}
	return []Reply{b.menuReply(sess.UserID, msgWelcomeBack)}, nil
}

// cancel ends any flow and returns to the main menu. Cart and orders are untouched.
func (b *Bot) cancel(_ context.Context, sess *domain.Session) ([]Reply, error) {
	sess.Reset()
	sess.ClearNav()
	return []Reply{b.menuReply(sess.UserID, msgCancelled)}, nil
}

// handleText routes free text. State-dependent input is checked against the
// admin set first so admin and user flows never read each other's text.
func (b *Bot) handleText(ctx context.Context, sess *domain.Session, text string) ([]Reply, error) {
	text = strings.TrimSpace(text)
	if text == menuCancel {
		return b.cancel(ctx, sess)
	}

	admin := b.isAdmin(sess.UserID)
	switch {
	case admin && sess.State.IsAdminFlow():
		return b.handleAdminText(ctx, sess, text)
	case !admin && sess.State.IsUserFlow():
		return b.handleUserText(ctx, sess, text)
	}

	return b.handleMenuText(ctx, sess, text)
}

func (b *Bot) handleMenuText(ctx context.Context, sess *domain.Session, text string) ([]Reply, error) {
	admin := b.isAdmin(sess.UserID)

	var root domain.ViewKind
	switch text {
	case menuCatalog:
		root = domain.ViewCatalog
	case menuCart:
		root = domain.ViewCart
	case menuOrders:
		root = domain.ViewOrders
	case menuAdmin:
		if !admin {
			return []Reply{b.menuReply(sess.UserID, msgChooseFromMenu)}, nil
		}
		sess.Reset()
		root = domain.ViewAdmin
	case menuInfo:
		return []Reply{textReply(msgInfo)}, nil
	case menuContact:
		return []Reply{textReply(fmt.Sprintf(msgContact, b.adminPhone))}, nil
	default:
		return []Reply{b.menuReply(sess.UserID, msgChooseFromMenu)}, nil
	}

	// menu entries are navigation roots
	sess.ClearNav()
	return b.open(ctx, sess, domain.View{Kind: root})
}

// open pushes v and renders it.
func (b *Bot) open(ctx context.Context, sess *domain.Session, v domain.View) ([]Reply, error) {
	sess.Push(v)
	r, err := b.render(ctx, sess.UserID, v)
	if err != nil {
		return nil, err
	}
	return []Reply{r}, nil
}

// back pops the navigation stack and renders the new top, or the menu when
// the stack is empty. Only leaving the quantity screen changes the state:
// the pending quantity step ends with it.
func (b *Bot) back(ctx context.Context, sess *domain.Session) ([]Reply, error) {
	leavingQty := false
	if cur, ok := sess.Top(); ok && cur.Kind == domain.ViewQuantity && sess.State == domain.StateAwaitingQty {
		leavingQty = true
	}

	var replies []Reply
	top, ok := sess.Pop()
	if !ok {
		replies = []Reply{b.menuReply(sess.UserID, msgChooseFromMenu)}
	} else {
		r, err := b.render(ctx, sess.UserID, top)
		if err != nil {
			return nil, err
		}
		replies = []Reply{r}
	}

	if !leavingQty {
		return replies, nil
	}
	sess.Reset()
	return b.withRegistration(ctx, sess, replies)
}

func (b *Bot) handleSelection(ctx context.Context, sess *domain.Session, a action.Action) ([]Reply, error) {
	if a.IsAdmin() {
		if !b.isAdmin(sess.UserID) {
			return []Reply{textReply(msgUnknownAction)}, nil
		}
		return b.handleAdminSelection(ctx, sess, a)
	}

	switch a.Kind {
	case action.Noop:
		return nil, nil
	case action.Back:
		return b.back(ctx, sess)
	case action.Menu:
		sess.ClearNav()
		return []Reply{b.menuReply(sess.UserID, msgChooseFromMenu)}, nil
	case action.Catalog:
		return b.open(ctx, sess, domain.View{Kind: domain.ViewCatalog})
	case action.Product:
		return b.open(ctx, sess, domain.View{Kind: domain.ViewProduct, ProductID: a.ProductID})
	case action.CartView:
		return b.open(ctx, sess, domain.View{Kind: domain.ViewCart})
	case action.Orders:
		return b.open(ctx, sess, domain.View{Kind: domain.ViewOrders})
	case action.CartAdd:
		return b.selectForCart(ctx, sess, a.ProductID, a.Variant)
	case action.CartInc, action.CartDec, action.CartDel, action.CartClear:
		return b.changeCart(ctx, sess, a)
	case action.CartConfirm:
		return b.confirm(ctx, sess)
	}
	return []Reply{textReply(msgUnknownAction)}, nil
}
