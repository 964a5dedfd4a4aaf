package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-storefront-bot/internal/admin"
	"github.com/ariefcatur/go-storefront-bot/internal/catalog"
	"github.com/ariefcatur/go-storefront-bot/internal/flow"
	"github.com/ariefcatur/go-storefront-bot/internal/orders"
	"github.com/ariefcatur/go-storefront-bot/internal/persist"
)

// What the customer is told when an admin moves their order.
var statusNotice = map[orders.Status]string{
	orders.StatusPending: "⏳ Order Status Update ⏳\n\nYour order (%s) status has been updated to pending.\n\n" +
		"We will process your order soon.\nThank you for your patience.",
	orders.StatusProcessing: "🔄 Order Status Update 🔄\n\nYour order (%s) is now being processed!\n\n" +
		"We are preparing your items for shipment.\nYou will receive another notification when your order ships.",
	orders.StatusShipped: "🚚 Order Status Update 🚚\n\nYour order (%s) has been shipped!\n\n" +
		"Your package is on its way to you.\nThank you for your business!",
	orders.StatusDelivered: "✅ Order Status Update ✅\n\nYour order (%s) has been marked as delivered!\n\n" +
		"We hope you enjoy your products.\nThank you for choosing our service!",
	orders.StatusCancelled: "❌ Order Status Update ❌\n\nYour order (%s) has been cancelled.\n\n" +
		"If you have any questions about this cancellation,\nplease contact our support.",
}

var backToPanel = row(btn("↩️ Back to Admin Panel", kind(KindAdminPanel)))

func (s *Service) adminPanel() Reply {
	all := s.Orders.All()
	pending := 0
	for _, o := range all {
		if o.Status == orders.StatusPending {
			pending++
		}
	}
	return Reply{
		Text: fmt.Sprintf("👑 Admin Control Panel 👑\n\nOrders: %d (%d pending)\nProducts: %d\n\nSelect an option to manage:",
			len(all), pending, s.Catalog.Len()),
		Buttons: [][]Button{
			row(btn("📋 View All Orders", kind(KindAdminViewOrders))),
			row(btn("🔍 Search Orders", kind(KindAdminSearchOrders))),
			row(btn("📊 Order Statistics", kind(KindAdminStats))),
			row(btn("🌿 Manage Products", kind(KindAdminManageProducts))),
			row(btn("🗑 Delete All Orders", kind(KindAdminDeleteAllConfirm))),
			row(btn("↩️ Back to Main Menu", kind(KindStart))),
		},
	}
}

// adminOrders shows a page of all orders, newest first, narrowed by the
// admin's status filter. delta 0 keeps the current page.
func (s *Service) adminOrders(user int64, delta int) Reply {
	v := s.viewOf(user)
	list := s.Orders.All()
	if v.filter != "" {
		kept := list[:0]
		for _, o := range list {
			if o.Status == v.filter {
				kept = append(kept, o)
			}
		}
		list = kept
	}

	if len(list) == 0 {
		text := "📋 No orders found."
		if v.filter != "" {
			text = fmt.Sprintf("📋 No %s orders found.", v.filter)
		}
		return Reply{
			Text: text,
			Buttons: [][]Button{
				row(btn("🔍 Search Orders", kind(KindAdminSearchOrders))),
				backToPanel,
			},
		}
	}

	page := orders.Paginate(list, s.PageSize, v.adminPage+delta)
	v.adminPage = page.Index

	var b strings.Builder
	b.WriteString("📋 All Orders 📋\n")
	if v.filter != "" {
		fmt.Fprintf(&b, "Filter: %s\n", title(string(v.filter)))
	}
	b.WriteString("\n")
	var rows [][]Button
	for _, o := range page.Items {
		fmt.Fprintf(&b, "User ID: %d\n", o.UserID)
		s.writeOrder(&b, o, true)
		b.WriteString("\n────────\n\n")
		rows = append(rows,
			row(btn("Update Status - "+o.ID, Command{Kind: KindAdminUpdateStatus, OrderID: o.ID})),
			row(btn("🗑 Delete Order - "+o.ID, Command{Kind: KindAdminDeleteConfirm, OrderID: o.ID})),
		)
	}
	fmt.Fprintf(&b, "Page %d of %d", page.Index+1, page.Count)

	rows = appendRow(rows, pager(page, KindAdminPrevPage, KindAdminNextPage))
	rows = append(rows, row(btn("🔍 Search Orders", kind(KindAdminSearchOrders))), backToPanel)
	return Reply{Text: b.String(), Buttons: rows}
}

func adminSearch() Reply {
	var rows [][]Button
	for _, st := range orders.Statuses {
		rows = append(rows, row(btn(statusIcon[st]+" "+title(string(st)), Command{Kind: KindAdminFilter, Status: st})))
	}
	rows = append(rows, row(btn("📋 All Orders", Command{Kind: KindAdminFilter})), backToPanel)
	return Reply{Text: "🔍 Search Orders\n\nShow orders with status:", Buttons: rows}
}

func (s *Service) adminFilter(user int64, st orders.Status) Reply {
	v := s.viewOf(user)
	v.clearAdmin()
	v.filter = st
	return s.adminOrders(user, 0)
}

func (s *Service) adminStatusMenu(id string) (Reply, error) {
	o, err := s.Orders.Find(id)
	if err != nil {
		return Reply{}, err
	}
	var rows [][]Button
	for _, st := range orders.Statuses {
		rows = append(rows, row(btn(statusIcon[st]+" "+title(string(st)),
			Command{Kind: KindAdminSetStatus, OrderID: o.ID, Status: st})))
	}
	rows = append(rows, row(btn("↩️ Back to Orders", kind(KindAdminViewOrders))))
	return Reply{
		Text:    fmt.Sprintf("Select new status for Order ID: %s\nCurrent status: %s", o.ID, title(string(o.Status))),
		Buttons: rows,
	}, nil
}

func (s *Service) adminSetStatus(ctx context.Context, user int64, id string, st orders.Status) (Reply, error) {
	prev, err := s.Orders.Find(id)
	if err != nil {
		return Reply{}, err
	}
	o, err := s.Orders.SetStatus(id, st)
	if err != nil {
		return Reply{}, err
	}
	s.save(ctx, persist.DocOrders)
	s.emit(ctx, orders.TopicOrders, orders.EventOrderStatusChanged, o.ID, orders.PartitionKey(o.ID),
		orders.OrderStatusChangedPayload{OrderID: o.ID, UserID: o.UserID, From: prev.Status, To: o.Status})
	s.notify(ctx, o.UserID, fmt.Sprintf(statusNotice[o.Status], o.ID))

	r := s.adminOrders(user, 0)
	r.Alert = "Order status updated to: " + string(o.Status)
	return r, nil
}

func (s *Service) adminDeleteConfirm(id string) (Reply, error) {
	o, err := s.Orders.Find(id)
	if err != nil {
		return Reply{}, err
	}
	return Reply{
		Text: fmt.Sprintf("⚠️ Are you sure you want to delete order %s?\nThis cannot be undone.", o.ID),
		Buttons: [][]Button{row(
			btn("✅ Yes, delete", Command{Kind: KindAdminDeleteOrder, OrderID: o.ID}),
			btn("❌ No", kind(KindAdminViewOrders)),
		)},
	}, nil
}

func (s *Service) adminDeleteOrder(ctx context.Context, user int64, id string) (Reply, error) {
	o, err := s.Orders.DeleteOne(id)
	if err != nil {
		return Reply{}, err
	}
	s.save(ctx, persist.DocOrders)
	s.emit(ctx, orders.TopicOrders, orders.EventOrderDeleted, o.ID, orders.PartitionKey(o.ID),
		orders.OrderDeletedPayload{OrderID: o.ID, UserID: o.UserID})

	r := s.adminOrders(user, 0)
	r.Alert = "Order " + o.ID + " deleted."
	return r, nil
}

func (s *Service) adminDeleteAllConfirm() Reply {
	return Reply{
		Text: fmt.Sprintf("⚠️ Are you sure you want to delete ALL %d orders?\nThis cannot be undone.", len(s.Orders.All())),
		Buttons: [][]Button{row(
			btn("✅ Yes, delete all", kind(KindAdminDeleteAll)),
			btn("❌ No", kind(KindAdminPanel)),
		)},
	}
}

func (s *Service) adminDeleteAll(ctx context.Context) Reply {
	n := s.Orders.DeleteAll()
	s.save(ctx, persist.DocOrders)
	s.emit(ctx, orders.TopicOrders, orders.EventOrdersPurged, "", nil, orders.OrdersPurgedPayload{Count: n})

	r := s.adminPanel()
	r.Alert = fmt.Sprintf("%d orders deleted.", n)
	return r
}

func (s *Service) adminStats() Reply {
	st := orders.ComputeStatistics(s.Orders.All())
	back := [][]Button{backToPanel}
	if st.Count == 0 {
		return Reply{Text: "📊 No orders to analyze", Buttons: back}
	}

	var b strings.Builder
	b.WriteString("📊 Order Statistics 📊\n\n")
	fmt.Fprintf(&b, "Total Orders: %d\nTotal Revenue: %s\n\n", st.Count, money(st.Revenue))
	b.WriteString("Order Status Breakdown:\n")
	for _, status := range orders.Statuses {
		if sh, ok := st.ByStatus[status]; ok {
			fmt.Fprintf(&b, "• %s: %d (%.1f%%)\n", title(string(status)), sh.Count, sh.Percent)
		}
	}
	b.WriteString("\nPayment Methods:\n")
	for _, m := range orders.PaymentMethods {
		if sh, ok := st.ByPayment[m]; ok {
			fmt.Fprintf(&b, "• %s: %d (%.1f%%)\n", title(string(m)), sh.Count, sh.Percent)
		}
	}
	b.WriteString("\nPopular Products:\n")
	for _, p := range st.Products {
		fmt.Fprintf(&b, "• %s: %s sold (%d units)\n", p.Product, s.soldAmount(p), p.Units)
	}
	return Reply{Text: b.String(), Buttons: back}
}

// soldAmount labels a sold weight with the product's unit when all of its
// tiers agree on one. Products that are gone or mix units get a bare number.
func (s *Service) soldAmount(ps orders.ProductSales) string {
	w := ps.Weight.String()
	p, err := s.Catalog.Get(ps.Product)
	if err != nil {
		return w
	}
	unit, seen := "", false
	for _, t := range p.Prices {
		if seen && t.Unit != unit {
			return w
		}
		unit, seen = t.Unit, true
	}
	if unit == "" {
		return w
	}
	return w + " " + unit
}

func (s *Service) adminProducts() Reply {
	var b strings.Builder
	b.WriteString("🌿 Manage Products 🌿\n\n")
	var rows [][]Button
	for _, p := range s.Catalog.List() {
		fmt.Fprintf(&b, "• %s\n  Description: %s\n\n", p.Name, p.Description)
		rows = append(rows,
			row(btn("✏️ Edit Name - "+p.Name, Command{Kind: KindAdminEditName, Product: p.Name})),
			row(
				btn("📝 Description", Command{Kind: KindAdminEditDesc, Product: p.Name}),
				btn("🖼 Image", Command{Kind: KindAdminEditImage, Product: p.Name}),
				btn("💲 Prices", Command{Kind: KindAdminEditPrices, Product: p.Name}),
			),
		)
	}
	rows = append(rows, row(btn("➕ Create New Product", kind(KindAdminCreateProduct))), backToPanel)
	return Reply{Text: b.String(), Buttons: rows}
}

var cancelToProducts = [][]Button{row(btn("✖️ Cancel", kind(KindAdminManageProducts)))}

var wizardPrompts = map[flow.Step]string{
	admin.StepName:        "➕ Create New Product\n\nPlease enter the product NAME:",
	admin.StepDescription: "Please enter the product DESCRIPTION:",
	admin.StepImage:       "Please enter the product IMAGE URL (must start with http:// or https://):",
	admin.StepPricing: "Please enter the PRICING INFORMATION in the following format:\n\n" +
		"weight,price,unit,description; weight,price,unit,description; ...",
}

func (s *Service) adminCreateProduct(ctx context.Context, user int64) (Reply, error) {
	if err := s.Editor.Cancel(ctx, user); err != nil {
		return Reply{}, err
	}
	if _, err := s.Wizard.Begin(ctx, user); err != nil {
		return Reply{}, err
	}
	return Reply{Text: wizardPrompts[admin.StepName], Buttons: cancelToProducts}, nil
}

func (s *Service) submitWizard(ctx context.Context, user int64, text string) (Reply, error) {
	sess, err := s.Wizard.Submit(ctx, user, text)
	if errors.Is(err, catalog.ErrDuplicateName) && sess.Step == admin.StepPricing {
		// Someone else took the name after it was checked. The draft is dead.
		if cerr := s.Wizard.Cancel(ctx, user); cerr != nil {
			return Reply{}, cerr
		}
		return Reply{
			Text: fmt.Sprintf("A product named '%s' was created in the meantime. Please start again with a different name.",
				sess.Data.Name),
			Buttons: [][]Button{row(btn("➕ Create New Product", kind(KindAdminCreateProduct))), backToPanel},
		}, nil
	}
	if msg, ok := inputMessage(err); ok {
		return Reply{Text: msg + "\n\n" + wizardPrompts[sess.Step], Buttons: cancelToProducts}, nil
	}
	if err != nil {
		return Reply{}, err
	}
	if sess.Step != flow.Done {
		return Reply{Text: wizardPrompts[sess.Step], Buttons: cancelToProducts}, nil
	}

	s.save(ctx, persist.DocCatalog)
	s.emit(ctx, orders.TopicCatalog, orders.EventProductChanged, sess.Data.Name, []byte(sess.Data.Name),
		orders.ProductChangedPayload{Product: sess.Data.Name, Change: "created"})
	return Reply{
		Text: fmt.Sprintf("✅ Product '%s' created successfully!", sess.Data.Name),
		Buttons: [][]Button{
			row(btn("🌿 Manage Products", kind(KindAdminManageProducts))),
			backToPanel,
		},
	}, nil
}

func (s *Service) adminEdit(ctx context.Context, user int64, name string, f admin.Field) (Reply, error) {
	if err := s.Wizard.Cancel(ctx, user); err != nil {
		return Reply{}, err
	}
	p, err := s.Editor.Begin(ctx, user, name, f)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: editPrompt(p, f), Buttons: cancelToProducts}, nil
}

func editPrompt(p catalog.Product, f admin.Field) string {
	switch f {
	case admin.FieldName:
		return fmt.Sprintf("✏️ Edit Product: %s\n\nName: %s\nType: %s\nTHC: %s\n\nPlease send the new name:",
			p.Name, p.Name, p.Type, p.Potency)
	case admin.FieldDescription:
		return fmt.Sprintf("📝 Edit Description: %s\n\nCurrent Description:\n%s\n\nPlease send the new description:",
			p.Name, p.Description)
	case admin.FieldImage:
		return fmt.Sprintf("🖼 Edit Image for: %s\n\nCurrent Image URL:\n%s\n\nPlease send the new image URL:",
			p.Name, p.Image)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "💲 Edit Prices: %s\n\nCurrent Prices:\n", p.Name)
	for _, label := range catalog.SortedTiers(p) {
		t := p.Prices[label]
		fmt.Fprintf(&b, "%s,%s,%s,%s;\n", label, t.Price.StringFixed(2), t.Unit, t.Description)
	}
	b.WriteString("\nPlease send the full new price list as weight,price,unit,description entries separated by semicolons:")
	return b.String()
}

var editChange = map[admin.Field]string{
	admin.FieldName:        "renamed",
	admin.FieldDescription: "description",
	admin.FieldImage:       "image",
	admin.FieldPrices:      "prices",
}

func (s *Service) submitEdit(ctx context.Context, user int64, text string) (Reply, error) {
	e, err := s.Editor.Submit(ctx, user, text)
	if errors.Is(err, catalog.ErrNotFound) {
		if cerr := s.Editor.Cancel(ctx, user); cerr != nil {
			s.Log.WarnContext(ctx, "cancel flow", "flow", "editor", "user_id", user, "err", cerr)
		}
		return Reply{}, err
	}
	if msg, ok := inputMessage(err); ok {
		return Reply{Text: msg + "\n\nPlease try again.", Buttons: cancelToProducts}, nil
	}
	if err != nil {
		return Reply{}, err
	}
	s.save(ctx, persist.DocCatalog)

	payload := orders.ProductChangedPayload{Product: e.Product, Change: editChange[e.Field]}
	text = fmt.Sprintf("✅ %s updated for %s.", title(string(e.Field)), e.Product)
	if e.Field == admin.FieldName {
		payload = orders.ProductChangedPayload{Product: e.Renamed, Previous: e.Product, Change: editChange[e.Field]}
		text = fmt.Sprintf("✅ Product renamed.\n\nOld name: %s\nNew name: %s", e.Product, e.Renamed)
	}
	s.emit(ctx, orders.TopicCatalog, orders.EventProductChanged, payload.Product, []byte(payload.Product), payload)
	return Reply{
		Text: text,
		Buttons: [][]Button{
			row(btn("🌿 Manage Products", kind(KindAdminManageProducts))),
			backToPanel,
		},
	}, nil
}
