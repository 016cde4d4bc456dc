package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_shopbot/internal/action"
	"github.com/fjod/go_shopbot/internal/domain"
	"github.com/fjod/go_shopbot/internal/notify"
	"github.com/fjod/go_shopbot/internal/repository"
	"github.com/fjod/go_shopbot/internal/service"
)

var fieldLabels = map[domain.ProductField]string{
	domain.FieldName:     "name",
	domain.FieldPrice:    "price",
	domain.FieldVariants: "variants",
	domain.FieldImage:    "image",
}

var fieldPrompts = map[domain.ProductField]string{
	domain.FieldName:     msgAskNewName,
	domain.FieldPrice:    msgAskNewPrice,
	domain.FieldVariants: msgAskNewVariants,
	domain.FieldImage:    msgAskNewImage,
}

var invalidPrompts = map[domain.ProductField]string{
	domain.FieldName:     msgNameTooShort,
	domain.FieldPrice:    msgBadPrice,
	domain.FieldVariants: msgAskNewVariants,
	domain.FieldImage:    msgAskNewImage,
}

func toAdminPanel() [][]Button {
	return [][]Button{row(btn(menuAdmin, action.Of(action.AdminHome)))}
}

func (b *Bot) handleAdminSelection(ctx context.Context, sess *domain.Session, a action.Action) ([]Reply, error) {
	switch a.Kind {
	case action.AdminHome:
		sess.Reset()
		sess.ClearNav()
		return b.open(ctx, sess, domain.View{Kind: domain.ViewAdmin})

	case action.AdminAdd:
		sess.Reset()
		sess.State = domain.StateAddChooseVariantMode
		return []Reply{{
			Text: msgAskVariantMode,
			Buttons: [][]Button{
				row(btn("With variants", action.AddMode(true))),
				row(btn("Without variants", action.AddMode(false))),
				row(btn(menuCancel, action.Of(action.AdminHome))),
			},
		}}, nil

	case action.AdminAddMode:
		if sess.State != domain.StateAddChooseVariantMode {
			sess.Reset()
			return []Reply{{Text: msgStepExpired, Buttons: toAdminPanel()}}, nil
		}
		sess.Draft = domain.ProductDraft{WithVariants: a.Flag}
		sess.State = domain.StateAddName
		return []Reply{textReply(msgAskProductName)}, nil

	case action.AdminManage:
		return b.open(ctx, sess, domain.View{Kind: domain.ViewAdminProducts})

	case action.AdminEdit:
		if _, err := b.catalog.GetProduct(ctx, a.ProductID); err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return []Reply{{Text: msgProductMissing, Buttons: toAdminPanel()}}, nil
			}
			return nil, err
		}
		sess.Reset()
		sess.EditTarget = a.ProductID
		return b.open(ctx, sess, domain.View{Kind: domain.ViewAdminProduct, ProductID: a.ProductID})

	case action.AdminField:
		if sess.EditTarget == 0 {
			sess.Reset()
			return []Reply{{Text: msgNoEditTarget, Buttons: toAdminPanel()}}, nil
		}
		state, ok := domain.EditFieldState(a.Field)
		if !ok {
			return []Reply{textReply(msgUnknownAction)}, nil
		}
		sess.State = state
		return []Reply{textReply(fieldPrompts[a.Field])}, nil

	case action.AdminDeleteAsk:
		if sess.EditTarget == 0 {
			sess.Reset()
			return []Reply{{Text: msgNoEditTarget, Buttons: toAdminPanel()}}, nil
		}
		p, err := b.catalog.GetProduct(ctx, sess.EditTarget)
		if errors.Is(err, repository.ErrProductNotFound) {
			sess.Reset()
			return []Reply{{Text: msgProductMissing, Buttons: toAdminPanel()}}, nil
		}
		if err != nil {
			return nil, err
		}
		return []Reply{renderDeleteConfirm(p)}, nil

	case action.AdminDelete:
		return b.deleteProduct(ctx, sess, a.ProductID)

	case action.AdminBroadcast:
		sess.Reset()
		sess.State = domain.StateBroadcastText
		return []Reply{textReply(msgAskBroadcast)}, nil

	case action.AdminStats:
		stats, err := b.orders.Stats(ctx)
		if err != nil {
			return nil, err
		}
		return []Reply{renderStats(stats)}, nil
	}
	return []Reply{textReply(msgUnknownAction)}, nil
}

func (b *Bot) deleteProduct(ctx context.Context, sess *domain.Session, pid int64) ([]Reply, error) {
	err := b.catalog.DeleteProduct(ctx, pid)
	if errors.Is(err, repository.ErrProductNotFound) {
		sess.Reset()
		return []Reply{{Text: msgProductMissing, Buttons: toAdminPanel()}}, nil
	}
	if err != nil {
		return nil, err
	}
	sess.Reset()

	if top, ok := sess.Top(); ok && top.Kind == domain.ViewAdminProduct && top.ProductID == pid {
		sess.Pop()
	}

	replies, err := b.open(ctx, sess, domain.View{Kind: domain.ViewAdminProducts})
	if err != nil {
		return nil, err
	}
	return append([]Reply{textReply(msgProductDeleted)}, replies...), nil
}

func (b *Bot) handleAdminText(ctx context.Context, sess *domain.Session, text string) ([]Reply, error) {
	switch sess.State {
	case domain.StateAddChooseVariantMode:
		return []Reply{textReply(msgUseButtons)}, nil

	case domain.StateAddName:
		if !service.ValidName(text) {
			return []Reply{textReply(msgNameTooShort)}, nil
		}
		sess.Draft.Name = text
		sess.State = domain.StateAddPrice
		return []Reply{textReply(msgAskPrice)}, nil

	case domain.StateAddPrice:
		price, ok := domain.ParseAmount(text)
		if !ok {
			return []Reply{textReply(msgBadPrice)}, nil
		}
		sess.Draft.Price = price
		if sess.Draft.WithVariants {
			sess.State = domain.StateAddVariants
			return []Reply{textReply(msgAskVariants)}, nil
		}
		sess.State = domain.StateAddImage
		return []Reply{textReply(msgAskImage)}, nil

	case domain.StateAddVariants:
		variants := domain.ParseVariants(text)
		sess.Draft.Variants = variants
		sess.Draft.WithVariants = len(variants) > 0
		sess.State = domain.StateAddImage
		return []Reply{textReply(msgAskImage)}, nil

	case domain.StateAddImage:
		return []Reply{textReply(msgAskImage)}, nil
	case domain.StateEditImage:
		return []Reply{textReply(msgAskNewImage)}, nil

	case domain.StateEditName:
		return b.editField(ctx, sess, domain.FieldName, text)
	case domain.StateEditPrice:
		return b.editField(ctx, sess, domain.FieldPrice, text)
	case domain.StateEditVariants:
		return b.editField(ctx, sess, domain.FieldVariants, text)

	case domain.StateBroadcastText:
		return b.runBroadcast(ctx, sess, notify.Message{Text: text})
	}
	return b.handleMenuText(ctx, sess, text)
}

func (b *Bot) handleAdminMedia(ctx context.Context, sess *domain.Session, m *Media) ([]Reply, error) {
	switch sess.State {
	case domain.StateAddImage:
		if !sess.Draft.Complete() {
			sess.Reset()
			return []Reply{{Text: msgDraftIncomplete, Buttons: toAdminPanel()}}, nil
		}
		draft := sess.Draft
		draft.ImageRef = m.Ref
		p, err := b.catalog.CreateProduct(ctx, draft)
		if err != nil {
			return nil, err
		}
		sess.Reset()
		return []Reply{{Text: fmt.Sprintf(msgProductAdded, p.ID, p.Name), Buttons: toAdminPanel()}}, nil

	case domain.StateEditImage:
		return b.editField(ctx, sess, domain.FieldImage, m.Ref)

	case domain.StateBroadcastText:
		return b.runBroadcast(ctx, sess, notify.Message{Text: m.Caption, ImageRef: m.Ref})
	}
	return []Reply{textReply(msgImageIgnored)}, nil
}

// editField applies one field edit to the edit target. Invalid input
// re-prompts; a missing target resets the flow.
func (b *Bot) editField(ctx context.Context, sess *domain.Session, field domain.ProductField, value string) ([]Reply, error) {
	if sess.EditTarget == 0 {
		sess.Reset()
		return []Reply{{Text: msgNoEditTarget, Buttons: toAdminPanel()}}, nil
	}

	err := b.catalog.UpdateField(ctx, sess.EditTarget, field, value)
	switch {
	case errors.Is(err, service.ErrInvalidValue):
		return []Reply{textReply(invalidPrompts[field])}, nil
	case errors.Is(err, repository.ErrProductNotFound):
		sess.Reset()
		return []Reply{{Text: msgProductMissing, Buttons: toAdminPanel()}}, nil
	case err != nil:
		return nil, err
	}

	pid := sess.EditTarget
	sess.Reset()
	return []Reply{{
		Text: fmt.Sprintf(msgFieldUpdated, fieldLabels[field]),
		Buttons: [][]Button{
			row(btn("Open product", action.ForProduct(action.AdminEdit, pid))),
			row(btn(menuAdmin, action.Of(action.AdminHome))),
		},
	}}, nil
}

func (b *Bot) runBroadcast(ctx context.Context, sess *domain.Session, msg notify.Message) ([]Reply, error) {
	n, err := b.broadcast.Start(ctx, sess.UserID, msg)
	sess.Reset()
	if err != nil {
		return nil, err
	}
	return []Reply{{
		Text:    fmt.Sprintf(msgBroadcastStarted, n),
		Buttons: toAdminPanel(),
	}}, nil
}
