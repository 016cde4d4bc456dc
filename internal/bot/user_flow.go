package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_shopbot/internal/action"
	"github.com/fjod/go_shopbot/internal/domain"
	"github.com/fjod/go_shopbot/internal/repository"
	"github.com/fjod/go_shopbot/internal/service"
)

func (b *Bot) handleUserText(ctx context.Context, sess *domain.Session, text string) ([]Reply, error) {
	switch sess.State {
	case domain.StateAwaitingName:
		if !service.ValidName(text) {
			return []Reply{textReply(msgNameTooShort)}, nil
		}
		sess.RegName = text
		sess.State = domain.StateAwaitingPhone
		return []Reply{{Text: msgAskPhone, RequestContact: true}}, nil

	case domain.StateAwaitingPhone:
		return []Reply{{Text: msgAskPhone, RequestContact: true}}, nil

	case domain.StateAwaitingQty:
		return b.enterQuantity(ctx, sess, text)
	}
	return b.handleMenuText(ctx, sess, text)
}

func (b *Bot) handleContact(ctx context.Context, sess *domain.Session, c *Contact) ([]Reply, error) {
	if b.isAdmin(sess.UserID) || sess.State != domain.StateAwaitingPhone || c == nil {
		return nil, nil
	}

	if sess.RegName == "" {
		sess.Reset()
		sess.State = domain.StateAwaitingName
		return []Reply{{Text: msgAskName, RemoveMenu: true}}, nil
	}

	if strings.TrimSpace(c.Phone) == "" {
		return []Reply{{Text: msgAskPhone, RequestContact: true}}, nil
	}

	if _, err := b.users.Register(ctx, sess.UserID, sess.RegName, c.Phone); err != nil {
		return nil, err
	}
	sess.Reset()

	return []Reply{
		{Text: msgRegistered, RemoveMenu: true},
		b.menuReply(sess.UserID, msgChooseFromMenu),
	}, nil
}

func (b *Bot) handleMedia(ctx context.Context, sess *domain.Session, m *Media) ([]Reply, error) {
	if !b.isAdmin(sess.UserID) {
		return []Reply{b.menuReply(sess.UserID, msgImageNotAllowed)}, nil
	}
	if m == nil || strings.TrimSpace(m.Ref) == "" {
		return []Reply{textReply(msgImageIgnored)}, nil
	}
	return b.handleAdminMedia(ctx, sess, m)
}

// selectForCart starts the quantity step for a product variant. Admins skip
// the quantity step and get a single unit, since quantity entry is a user flow.
func (b *Bot) selectForCart(ctx context.Context, sess *domain.Session, pid int64, variant string) ([]Reply, error) {
	p, err := b.catalog.GetProduct(ctx, pid)
	if errors.Is(err, repository.ErrProductNotFound) {
		return []Reply{textReply(msgProductMissing)}, nil
	}
	if err != nil {
		return nil, err
	}

	variant = domain.NormalizeVariant(variant)
	if !variantAllowed(p, variant) {
		return []Reply{textReply(msgUnknownAction)}, nil
	}

	if b.isAdmin(sess.UserID) {
		if err := b.cart.Add(ctx, sess.UserID, pid, variant, 1); err != nil {
			return nil, err
		}
		return []Reply{addedReply(p, variant, 1)}, nil
	}

	sess.Reset()
	sess.PendingProduct = pid
	sess.PendingVariant = variant
	sess.State = domain.StateAwaitingQty
	return b.open(ctx, sess, domain.View{Kind: domain.ViewQuantity, ProductID: pid, Variant: variant})
}

func variantAllowed(p *domain.Product, variant string) bool {
	if !p.HasVariants() {
		return variant == domain.NoVariant
	}
	for _, v := range p.Variants {
		if v == variant {
			return true
		}
	}
	return false
}

// resumeRegistration puts a user who has not registered yet back on the
// registration path once a side step has ended. It replies nothing for
// admins and registered users.
func (b *Bot) resumeRegistration(ctx context.Context, sess *domain.Session) ([]Reply, error) {
	if b.isAdmin(sess.UserID) {
		return nil, nil
	}
	registered, err := b.users.IsRegistered(ctx, sess.UserID)
	if err != nil || registered {
		return nil, err
	}
	sess.State = domain.StateAwaitingName
	return []Reply{{Text: msgAskName, RemoveMenu: true}}, nil
}

// withRegistration appends the registration prompt when the user still owes one.
func (b *Bot) withRegistration(ctx context.Context, sess *domain.Session, replies []Reply) ([]Reply, error) {
	more, err := b.resumeRegistration(ctx, sess)
	if err != nil {
		return nil, err
	}
	return append(replies, more...), nil
}

func (b *Bot) enterQuantity(ctx context.Context, sess *domain.Session, text string) ([]Reply, error) {
	if sess.PendingProduct == 0 {
		sess.Reset()
		return b.withRegistration(ctx, sess, []Reply{textReply(msgNoPendingItem)})
	}

	qty, ok := domain.ParseAmount(text)
	if !ok || qty > maxQuantity {
		return []Reply{textReply(msgBadQuantity)}, nil
	}

	pid, variant := sess.PendingProduct, sess.PendingVariant
	err := b.cart.Add(ctx, sess.UserID, pid, variant, int(qty))
	if errors.Is(err, repository.ErrProductNotFound) {
		sess.Reset()
		return b.withRegistration(ctx, sess, []Reply{textReply(msgProductMissing)})
	}
	if err != nil {
		return nil, err
	}
	sess.Reset()

	// the quantity screen is finished; back from here returns to the product
	if top, ok := sess.Top(); ok && top.Kind == domain.ViewQuantity {
		sess.Pop()
	}

	p, err := b.catalog.GetProduct(ctx, pid)
	if err != nil {
		return nil, err
	}
	return b.withRegistration(ctx, sess, []Reply{addedReply(p, variant, int(qty))})
}

// maxQuantity keeps a single cart line within int range on every platform.
const maxQuantity = 100000

func addedReply(p *domain.Product, variant string, qty int) Reply {
	return Reply{
		Text: fmt.Sprintf(msgAddedToCart, itemLabel(p.Name, variant), qty),
		Buttons: [][]Button{
			row(btn("Open cart", action.Of(action.CartView))),
			row(btn("Back", action.Of(action.Back))),
		},
	}
}

func (b *Bot) changeCart(ctx context.Context, sess *domain.Session, a action.Action) ([]Reply, error) {
	var (
		err    error
		notice string
	)
	switch a.Kind {
	case action.CartInc:
		err = b.cart.Increment(ctx, sess.UserID, a.ProductID, a.Variant)
	case action.CartDec:
		err = b.cart.Decrement(ctx, sess.UserID, a.ProductID, a.Variant)
	case action.CartDel:
		err = b.cart.Remove(ctx, sess.UserID, a.ProductID, a.Variant)
	case action.CartClear:
		err = b.cart.Clear(ctx, sess.UserID)
		notice = msgCartCleared
	}
	if err != nil {
		return nil, err
	}

	replies, err := b.open(ctx, sess, domain.View{Kind: domain.ViewCart})
	if err != nil {
		return nil, err
	}
	if notice != "" {
		replies = append([]Reply{textReply(notice)}, replies...)
	}
	return replies, nil
}

func (b *Bot) confirm(ctx context.Context, sess *domain.Session) ([]Reply, error) {
	order, err := b.orders.Confirm(ctx, sess.UserID)
	switch {
	case errors.Is(err, service.ErrNotRegistered):
		return []Reply{textReply(msgRegisterFirst)}, nil
	case errors.Is(err, service.ErrEmptyCart):
		return []Reply{textReply(msgCartEmpty)}, nil
	case err != nil:
		return nil, err
	}

	return []Reply{{
		Text: fmt.Sprintf(msgOrderAccepted, order.ID, domain.FormatMoney(order.Total)),
		Buttons: [][]Button{
			row(btn(menuOrders, action.Of(action.Orders))),
			row(btn("Main menu", action.Of(action.Menu))),
		},
	}}, nil
}
