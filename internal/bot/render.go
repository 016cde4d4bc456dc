package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_shopbot/internal/action"
	"github.com/fjod/go_shopbot/internal/domain"
	"github.com/fjod/go_shopbot/internal/repository"
)

const (
	barWidth  = 18
	barFilled = "▰"
	barEmpty  = "▱"
)

// render draws a screen from current data. It never changes the session or the store.
func (b *Bot) render(ctx context.Context, uid int64, v domain.View) (Reply, error) {
	switch v.Kind {
	case domain.ViewCatalog:
		return b.renderCatalog(ctx)
	case domain.ViewProduct:
		return b.renderProduct(ctx, v.ProductID)
	case domain.ViewCart:
		return b.renderCart(ctx, uid)
	case domain.ViewQuantity:
		return b.renderQuantity(ctx, v.ProductID, v.Variant)
	case domain.ViewOrders:
		return b.renderOrders(ctx, uid)
	case domain.ViewAdmin:
		return renderAdminPanel(), nil
	case domain.ViewAdminProducts:
		return b.renderAdminProducts(ctx)
	case domain.ViewAdminProduct:
		return b.renderAdminProduct(ctx, v.ProductID)
	}
	return b.menuReply(uid, msgChooseFromMenu), nil
}

func (b *Bot) menuReply(uid int64, text string) Reply {
	menu := [][]string{
		{menuCatalog, menuCart},
		{menuOrders, menuInfo},
		{menuContact},
	}
	if b.isAdmin(uid) {
		menu = append(menu, []string{menuAdmin})
	}
	return Reply{Text: text, Menu: menu}
}

func backRow() []Button {
	return row(btn("Back", action.Of(action.Back)))
}

func itemLabel(name, variant string) string {
	if variant == "" || variant == domain.NoVariant {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, variant)
}

func (b *Bot) renderCatalog(ctx context.Context) (Reply, error) {
	products, err := b.catalog.ListProducts(ctx)
	if err != nil {
		return Reply{}, err
	}
	if len(products) == 0 {
		return Reply{Text: msgCatalogEmpty, Buttons: [][]Button{backRow()}}, nil
	}

	buttons := make([][]Button, 0, len(products)+1)
	for _, p := range products {
		label := fmt.Sprintf("%s - %s", p.Name, domain.FormatMoney(p.Price))
		buttons = append(buttons, row(btn(label, action.ForProduct(action.Product, p.ID))))
	}
	buttons = append(buttons, backRow())
	return Reply{Text: "Catalog:", Buttons: buttons}, nil
}

func (b *Bot) renderProduct(ctx context.Context, pid int64) (Reply, error) {
	p, err := b.catalog.GetProduct(ctx, pid)
	if errors.Is(err, repository.ErrProductNotFound) {
		return Reply{Text: msgProductMissing, Buttons: [][]Button{backRow()}}, nil
	}
	if err != nil {
		return Reply{}, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\nPrice: %s", p.Name, domain.FormatMoney(p.Price))
	if p.HasVariants() {
		fmt.Fprintf(&sb, "\nVariants: %s", domain.JoinVariants(p.Variants))
	}
	if b.adminPhone != "" {
		fmt.Fprintf(&sb, "\nQuestions: %s", b.adminPhone)
	}

	var buttons [][]Button
	if p.HasVariants() {
		for _, v := range p.Variants {
			buttons = append(buttons, row(btn(v, action.ForLine(action.CartAdd, p.ID, v))))
		}
	} else {
		buttons = append(buttons, row(btn("Add to cart", action.ForLine(action.CartAdd, p.ID, domain.NoVariant))))
	}
	buttons = append(buttons,
		row(btn(menuCart, action.Of(action.CartView))),
		backRow(),
	)

	return Reply{Text: sb.String(), ImageRef: p.ImageRef, Buttons: buttons}, nil
}

func (b *Bot) renderCart(ctx context.Context, uid int64) (Reply, error) {
	rows, err := b.cart.Rows(ctx, uid)
	if err != nil {
		return Reply{}, err
	}
	if len(rows) == 0 {
		return Reply{
			Text: msgCartEmpty,
			Buttons: [][]Button{
				row(btn(menuCatalog, action.Of(action.Catalog))),
				backRow(),
			},
		}, nil
	}

	var sb strings.Builder
	sb.WriteString("Your cart:\n")
	buttons := make([][]Button, 0, 2*len(rows)+2)
	for _, r := range rows {
		label := itemLabel(r.Name, r.Variant)
		fmt.Fprintf(&sb, "\n%s x %d = %s", label, r.Quantity, domain.FormatMoney(r.Subtotal()))
		buttons = append(buttons,
			row(
				btn("−", action.ForLine(action.CartDec, r.ProductID, r.Variant)),
				btn(fmt.Sprintf("%d", r.Quantity), action.Of(action.Noop)),
				btn("+", action.ForLine(action.CartInc, r.ProductID, r.Variant)),
			),
			row(btn("Remove "+label, action.ForLine(action.CartDel, r.ProductID, r.Variant))),
		)
	}
	fmt.Fprintf(&sb, "\n\nTotal: %s", domain.FormatMoney(domain.CartTotal(rows)))

	buttons = append(buttons,
		row(btn("Confirm order", action.Of(action.CartConfirm)), btn("Clear", action.Of(action.CartClear))),
		backRow(),
	)
	return Reply{Text: sb.String(), Buttons: buttons}, nil
}

func (b *Bot) renderQuantity(ctx context.Context, pid int64, variant string) (Reply, error) {
	p, err := b.catalog.GetProduct(ctx, pid)
	if errors.Is(err, repository.ErrProductNotFound) {
		return Reply{Text: msgProductMissing, Buttons: [][]Button{backRow()}}, nil
	}
	if err != nil {
		return Reply{}, err
	}
	return Reply{
		Text:    fmt.Sprintf(msgAskQuantity, itemLabel(p.Name, variant)),
		Buttons: [][]Button{backRow()},
	}, nil
}

func (b *Bot) renderOrders(ctx context.Context, uid int64) (Reply, error) {
	orders, err := b.orders.ListOrders(ctx, uid)
	if err != nil {
		return Reply{}, err
	}
	if len(orders) == 0 {
		return Reply{Text: msgNoOrders, Buttons: [][]Button{backRow()}}, nil
	}

	var sb strings.Builder
	sb.WriteString("Your orders:")
	for _, o := range orders {
		fmt.Fprintf(&sb, "\n\n#%d from %s, total %s", o.ID, o.CreatedAt.Format("2006-01-02 15:04"), domain.FormatMoney(o.Total))
		for _, it := range o.Items {
			fmt.Fprintf(&sb, "\n- %s x %d", itemLabel(it.Name, it.Variant), it.Quantity)
		}
	}
	return Reply{Text: sb.String(), Buttons: [][]Button{backRow()}}, nil
}

func renderAdminPanel() Reply {
	return Reply{
		Text: "Admin panel:",
		Buttons: [][]Button{
			row(btn("Add product", action.Of(action.AdminAdd))),
			row(btn("Manage products", action.Of(action.AdminManage))),
			row(btn("Broadcast", action.Of(action.AdminBroadcast))),
			row(btn("Statistics", action.Of(action.AdminStats))),
		},
	}
}

func (b *Bot) renderAdminProducts(ctx context.Context) (Reply, error) {
	products, err := b.catalog.ListProducts(ctx)
	if err != nil {
		return Reply{}, err
	}
	if len(products) == 0 {
		return Reply{Text: msgCatalogEmpty, Buttons: [][]Button{backRow()}}, nil
	}

	buttons := make([][]Button, 0, len(products)+1)
	for _, p := range products {
		label := fmt.Sprintf("#%d %s", p.ID, p.Name)
		buttons = append(buttons, row(btn(label, action.ForProduct(action.AdminEdit, p.ID))))
	}
	buttons = append(buttons, backRow())
	return Reply{Text: "Products:", Buttons: buttons}, nil
}

func (b *Bot) renderAdminProduct(ctx context.Context, pid int64) (Reply, error) {
	p, err := b.catalog.GetProduct(ctx, pid)
	if errors.Is(err, repository.ErrProductNotFound) {
		return Reply{Text: msgProductMissing, Buttons: [][]Button{backRow()}}, nil
	}
	if err != nil {
		return Reply{}, err
	}

	variants := "none"
	if p.HasVariants() {
		variants = domain.JoinVariants(p.Variants)
	}
	text := fmt.Sprintf("#%d %s\nPrice: %s\nVariants: %s", p.ID, p.Name, domain.FormatMoney(p.Price), variants)

	return Reply{
		Text:     text,
		ImageRef: p.ImageRef,
		Buttons: [][]Button{
			row(btn("Edit name", action.EditField(domain.FieldName)), btn("Edit price", action.EditField(domain.FieldPrice))),
			row(btn("Edit variants", action.EditField(domain.FieldVariants)), btn("Edit image", action.EditField(domain.FieldImage))),
			row(btn("Delete", action.Of(action.AdminDeleteAsk))),
			backRow(),
		},
	}, nil
}

func renderDeleteConfirm(p *domain.Product) Reply {
	return Reply{
		Text: fmt.Sprintf("Delete #%d %s? Cart lines holding it are removed too.", p.ID, p.Name),
		Buttons: [][]Button{
			row(
				btn("Yes, delete", action.ForProduct(action.AdminDelete, p.ID)),
				btn("No", action.ForProduct(action.AdminEdit, p.ID)),
			),
		},
	}
}

func renderStats(s *domain.Stats) Reply {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Users: %d\nOrders: %d\nRevenue: %s", s.Users, s.Orders, domain.FormatMoney(s.Revenue))

	if len(s.TopProducts) == 0 {
		sb.WriteString("\n\n" + msgNotEnoughOrders)
	} else {
		top := s.TopProducts[0].Quantity
		sb.WriteString("\n\nTop products:")
		for _, t := range s.TopProducts {
			fmt.Fprintf(&sb, "\n%s %s %d", makeBar(t.Quantity, top), t.Name, t.Quantity)
		}
	}
	return Reply{Text: sb.String(), Buttons: toAdminPanel()}
}

// makeBar scales value against peak onto barWidth cells; any positive value
// gets at least one filled cell.
func makeBar(value, peak int) string {
	if peak <= 0 || value <= 0 {
		return strings.Repeat(barEmpty, barWidth)
	}
	filled := value * barWidth / peak
	if filled < 1 {
		filled = 1
	}
	if filled > barWidth {
		filled = barWidth
	}
	return strings.Repeat(barFilled, filled) + strings.Repeat(barEmpty, barWidth-filled)
}
