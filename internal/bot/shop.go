package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront-bot/internal/cart"
	"github.com/ariefcatur/go-storefront-bot/internal/catalog"
	"github.com/ariefcatur/go-storefront-bot/internal/checkout"
	"github.com/ariefcatur/go-storefront-bot/internal/flow"
	"github.com/ariefcatur/go-storefront-bot/internal/orders"
	"github.com/ariefcatur/go-storefront-bot/internal/persist"
)

// Receiving addresses shown on the payment screen.
var paymentAddress = map[orders.PaymentMethod]string{
	orders.PaymentBitcoin: "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh",
	orders.PaymentMonero:  "44AFFq5kSiGBoZ4NMDwYtN18obc8AemS33DBLWs3H7otXft3XjrpDtQGv7SqSsaBYBb98uNbr2VBBEt7f2wfn3RVGQBEP3A",
}

func (s *Service) labDate() time.Time { return s.now().AddDate(0, 0, -3) }

func (s *Service) mainMenu() Reply {
	return Reply{
		Text: "✨ TOP Gear\n" +
			"🔬 Lab Tested WITH results\n" +
			"🚚 Unmatched Delivery Stealth\n\n" +
			"Our team ALWAYS assures quality and ZERO additives.\n\n" +
			"🧪 Latest Lab Test: " + s.labDate().Format("January 02, 2006"),
		Buttons: [][]Button{
			row(btn("Shop Now", kind(KindViewProducts))),
			row(btn("Your Shopping Cart", kind(KindViewCart)), btn("Your Orders", kind(KindViewOrders))),
			row(btn("Support & FAQ", kind(KindHelp))),
			row(btn("Lab Results", kind(KindLabResults))),
		},
	}
}

func helpReply() Reply {
	return Reply{
		Text: "❓ Support & Frequently Asked Questions ❓\n\n" +
			"Quick Commands:\n" +
			"• /start - Return to main menu\n\n" +
			"FAQ:\n" +
			"Q: How long does delivery take?\nA: Typically 3-5 business days\n\n" +
			"Q: What payment methods are accepted?\nA: Bitcoin & Monero\n\n" +
			"Q: Are lab results available?\nA: Yes, check the Lab Results button\n\n" +
			"Q: Where do you ship?\nA: Only within USA.\n\n" +
			"Q: My order never arrived, what do I do?\n" +
			"A: Contact support directly. Lost or underweight packages are reshipped.\n\n" +
			"Q: Do I receive a tracking number?\n" +
			"A: Only when requested directly, for your privacy and ours.",
		Buttons: [][]Button{row(btn("🔙 Return to Main Menu", kind(KindStart)))},
	}
}

func (s *Service) labResults() Reply {
	d := s.labDate()
	return Reply{
		Text: "🧪 Laboratory Analysis Results 🧪\n\n" +
			"Test Date: " + d.Format("January 02, 2006") + "\n" +
			"Lab Facility: CannaLytics Research Center\n\n" +
			"Product Analysis:\n" +
			"✅ Purity: 99.99%\n" +
			"✅ Pesticides: None Detected\n" +
			"✅ Heavy Metals: None Detected\n" +
			"✅ Microbials: Pass\n" +
			"✅ Residual Solvents: Pass\n\n" +
			"Certificate ID: LAB-" + d.Format("20060102") + "-MA\n\n" +
			"Results verified by independent third-party laboratory.",
		Buttons: [][]Button{
			row(btn("Shop Products", kind(KindViewProducts))),
			row(btn("↩️ Back to Menu", kind(KindStart))),
		},
	}
}

// showProduct moves the user's browse position by delta, clamped to the
// catalog, and renders the product there.
func (s *Service) showProduct(user int64, delta int) Reply {
	list := s.Catalog.List()
	if len(list) == 0 {
		return Reply{
			Text:    "No products are available right now.",
			Buttons: [][]Button{row(btn("Back to Menu", kind(KindStart)))},
		}
	}
	v := s.viewOf(user)
	v.product = min(max(v.product+delta, 0), len(list)-1)
	p := list[v.product]

	var b strings.Builder
	fmt.Fprintf(&b, "🌿 %s 🌿\n", p.Name)
	fmt.Fprintf(&b, "Type: %s | THC: %s\n\n", p.Type, p.Potency)
	fmt.Fprintf(&b, "Description:\n%s\n\n", p.Description)
	fmt.Fprintf(&b, "Product %d of %d. Choose an amount category:", v.product+1, len(list))

	var cats []Button
	for _, c := range catalog.Categories {
		cats = append(cats, btn(title(string(c)), Command{Kind: KindViewCategory, Product: p.Name, Category: c}))
	}
	var nav []Button
	if v.product > 0 {
		nav = append(nav, btn("⬅️ Previous", kind(KindPrevProduct)))
	}
	if v.product < len(list)-1 {
		nav = append(nav, btn("Next ➡️", kind(KindNextProduct)))
	}
	rows := [][]Button{cats}
	rows = appendRow(rows, nav)
	rows = append(rows, row(btn("🛒 Cart", kind(KindViewCart)), btn("↩️ Back", kind(KindStart))))
	return Reply{Text: b.String(), Image: p.Image, Buttons: rows}
}

func (s *Service) showCategory(user int64, name string, c catalog.Category) (Reply, error) {
	p, err := s.Catalog.Get(name)
	if err != nil {
		return Reply{}, err
	}
	items := s.Carts.Get(user)

	var b strings.Builder
	fmt.Fprintf(&b, "🌿 %s 🌿\n%s Amounts\n\n", p.Name, title(string(c)))
	var rows [][]Button
	for _, label := range catalog.TiersIn(p, c) {
		t := p.Prices[label]
		text := fmt.Sprintf("%s - %s", amount(label, t), money(t.Price))
		if t.Description != "" {
			fmt.Fprintf(&b, "• %s: %s\n", amount(label, t), t.Description)
		}
		if n := items[cart.Key{Product: p.Name, Tier: label}]; n > 0 {
			text += fmt.Sprintf(" (%dx)", n)
		}
		rows = append(rows, row(btn(text, Command{Kind: KindAddToCart, Product: p.Name, Tier: label})))
	}
	rows = append(rows,
		row(btn("↩️ Back", kind(KindViewProducts)), btn("🛒 Cart", kind(KindViewCart))),
		row(btn("Main Menu", kind(KindStart))),
	)
	return Reply{Text: b.String(), Image: p.Image, Buttons: rows}, nil
}

func (s *Service) addToCart(ctx context.Context, user int64, product, tier string) (Reply, error) {
	t, err := s.Catalog.Tier(product, tier)
	if err != nil {
		return Reply{}, err
	}
	qty, err := s.Carts.AddItem(user, product, tier, 1)
	if err != nil {
		return Reply{}, err
	}
	s.save(ctx, persist.DocCarts)

	return Reply{
		Alert: fmt.Sprintf("Added %s of %s to cart!", amount(tier, t), product),
		Text:  fmt.Sprintf("%s %s is in your cart (%dx).", product, amount(tier, t), qty),
		Buttons: [][]Button{
			row(btn("Continue Shopping", kind(KindViewProducts))),
			row(btn("🛒 View Cart", kind(KindViewCart)), btn("Checkout", kind(KindCheckout))),
		},
	}, nil
}

func emptyCartReply() Reply {
	return Reply{
		Text: "🛒 Your cart is empty.\n\nBrowse the shop to add something.",
		Buttons: [][]Button{
			row(btn("Shop Now", kind(KindViewProducts))),
			row(btn("↩️ Back to Menu", kind(KindStart))),
		},
	}
}

func (s *Service) viewCart(user int64) Reply {
	items := s.Carts.Get(user)
	if items.Empty() {
		return emptyCartReply()
	}
	sum := cart.Summarize(items, s.Catalog)

	var b strings.Builder
	b.WriteString("🛒 Your Shopping Cart 🛒\n\n")
	writeSummary(&b, sum)
	fmt.Fprintf(&b, "\nSubtotal: %s\nShipping: FREE\nTotal: %s", money(sum.Total), money(sum.Total))
	return Reply{
		Text: b.String(),
		Buttons: [][]Button{
			row(btn("✅ Proceed to Checkout", kind(KindCheckout))),
			row(btn("Continue Shopping", kind(KindViewProducts))),
			row(btn("🗑 Clear Cart", kind(KindClearCart))),
			row(btn("↩️ Back to Menu", kind(KindStart))),
		},
	}
}

func (s *Service) clearCart(ctx context.Context, user int64) Reply {
	s.Carts.Clear(user)
	s.save(ctx, persist.DocCarts)
	return Reply{
		Alert: "Cart cleared.",
		Text:  "🛒 Your cart has been cleared.",
		Buttons: [][]Button{
			row(btn("Shop Now", kind(KindViewProducts))),
			row(btn("↩️ Back to Menu", kind(KindStart))),
		},
	}
}

func (s *Service) beginCheckout(ctx context.Context, user int64) (Reply, error) {
	sess, err := s.Checkout.Begin(ctx, user)
	if errors.Is(err, checkout.ErrCheckoutActive) {
		return Reply{
			Text: fmt.Sprintf("You already have a checkout in progress for order %s.\n\n"+
				"Resume it, or cancel it to start over.", sess.Data.OrderID),
			Buttons: [][]Button{
				row(btn("▶️ Resume Checkout", kind(KindCheckoutResume))),
				row(btn("✖️ Cancel Checkout", kind(KindCheckoutCancel))),
			},
		}, nil
	}
	if err != nil {
		return Reply{}, err
	}
	return shippingPrompt(), nil
}

func shippingPrompt() Reply {
	return Reply{
		Text: "📦 Shipping Information 📦\n\n" +
			"Please send your shipping details in this format:\n\n" +
			"Name\nStreet Address\nCity, State ZIP\n\n" +
			"Example:\nJohn Doe\n123 Main St\nAnytown, CA 12345",
		Buttons: [][]Button{row(btn("↩️ Back to Cart", kind(KindViewCart)))},
	}
}

func (s *Service) resumeCheckout(ctx context.Context, user int64) (Reply, error) {
	cur, err := s.Checkout.Current(ctx, user)
	if err != nil {
		return Reply{}, err
	}
	return s.checkoutScreen(ctx, user, cur)
}

// checkoutScreen renders the screen for the checkout's current step.
func (s *Service) checkoutScreen(ctx context.Context, user int64, cur flow.Session[checkout.Data]) (Reply, error) {
	switch cur.Step {
	case checkout.StepShipping:
		return shippingPrompt(), nil
	case checkout.StepPaymentMethod:
		return s.review(user, cur.Data)
	case checkout.StepConfirmPayment:
		o, err := s.Orders.Find(cur.Data.OrderID)
		if err != nil {
			return Reply{}, err
		}
		return s.paymentDetails(o), nil
	}
	return Reply{}, fmt.Errorf("%w: checkout at %s", flow.ErrUnexpectedStep, cur.Step)
}

func (s *Service) submitShipping(ctx context.Context, user int64, text string) (Reply, error) {
	sess, err := s.Checkout.SubmitShipping(ctx, user, text)
	if msg, ok := inputMessage(err); ok {
		r := shippingPrompt()
		r.Text = msg + "\n\n" + r.Text
		return r, nil
	}
	if err != nil {
		return Reply{}, err
	}
	return s.review(user, sess.Data)
}

// review shows what will be ordered and asks for a payment method. Before
// the order exists the lines come from the cart at current prices; after,
// from the stored order.
func (s *Service) review(user int64, d checkout.Data) (Reply, error) {
	var b strings.Builder
	b.WriteString("📋 Order Review 📋\n\n")
	if d.Materialized {
		o, err := s.Orders.Find(d.OrderID)
		if err != nil {
			return Reply{}, err
		}
		s.writeItems(&b, o.Items)
		fmt.Fprintf(&b, "\nTotal: %s\n", money(o.Total))
	} else {
		items := s.Carts.Get(user)
		if items.Empty() {
			return Reply{}, checkout.ErrEmptyCart
		}
		sum := cart.Summarize(items, s.Catalog)
		writeSummary(&b, sum)
		fmt.Fprintf(&b, "\nSubtotal: %s\nShipping: FREE\nTotal: %s\n", money(sum.Total), money(sum.Total))
	}
	fmt.Fprintf(&b, "\nShipping To:\n%s\n\nPlease select a payment method:", d.Shipping)
	return Reply{
		Text: b.String(),
		Buttons: [][]Button{
			row(btn("₿ Bitcoin", Command{Kind: KindPayment, Method: orders.PaymentBitcoin})),
			row(btn("ɱ Monero", Command{Kind: KindPayment, Method: orders.PaymentMonero})),
			row(btn("↩️ Back to Cart", kind(KindViewCart))),
		},
	}, nil
}

func (s *Service) selectPayment(ctx context.Context, user int64, m orders.PaymentMethod) (Reply, error) {
	before, err := s.Checkout.Current(ctx, user)
	if err != nil {
		return Reply{}, err
	}
	o, err := s.Checkout.SelectPayment(ctx, user, m)
	if err != nil {
		return Reply{}, err
	}
	s.save(ctx, persist.DocOrders)
	if !before.Data.Materialized {
		s.emit(ctx, orders.TopicOrders, orders.EventOrderPlaced, o.ID, orders.PartitionKey(o.ID),
			orders.OrderPlacedPayload{
				OrderID:       o.ID,
				UserID:        o.UserID,
				Total:         o.Total,
				Units:         o.Items.Units(),
				PaymentMethod: o.PaymentMethod,
			})
	}
	return s.paymentDetails(o), nil
}

func (s *Service) paymentDetails(o orders.Order) Reply {
	var b strings.Builder
	b.WriteString("💳 Payment Details 💳\n\n")
	fmt.Fprintf(&b, "Order ID: %s\n\n", o.ID)
	s.writeItems(&b, o.Items)
	fmt.Fprintf(&b, "\nTotal Amount: %s\n", money(o.Total))
	fmt.Fprintf(&b, "Payment Method: %s\n\n", title(string(o.PaymentMethod)))
	fmt.Fprintf(&b, "Please send payment to:\n%s\n\n", paymentAddress[o.PaymentMethod])
	fmt.Fprintf(&b, "Shipping To:\n%s\n\n", o.ShippingAddress)
	b.WriteString("Press the button below once the payment is sent.")
	return Reply{
		Text: b.String(),
		Buttons: [][]Button{
			row(btn("✅ Confirm Payment Sent", kind(KindConfirmPayment))),
			row(btn("↩️ Change Payment", kind(KindChangePayment))),
		},
	}
}

func (s *Service) changePayment(ctx context.Context, user int64) (Reply, error) {
	sess, err := s.Checkout.ChangePayment(ctx, user)
	if err != nil {
		return Reply{}, err
	}
	return s.review(user, sess.Data)
}

func (s *Service) confirmPayment(ctx context.Context, user int64) (Reply, error) {
	o, err := s.Checkout.Confirm(ctx, user)
	if err != nil {
		return Reply{}, err
	}
	s.save(ctx, persist.DocOrders, persist.DocCarts)
	s.emit(ctx, orders.TopicOrders, orders.EventPaymentClaimed, o.ID, orders.PartitionKey(o.ID),
		orders.PaymentClaimedPayload{OrderID: o.ID, UserID: o.UserID, Total: o.Total})

	var b strings.Builder
	b.WriteString("✅ Order Confirmed ✅\n\n")
	b.WriteString("Thank you! We will verify your payment and process your order.\n\n")
	s.writeOrder(&b, o, true)
	return Reply{
		Text: b.String(),
		Buttons: [][]Button{
			row(btn("📦 View Order Status", kind(KindViewOrders))),
			row(btn("↩️ Back to Menu", kind(KindStart))),
		},
	}, nil
}

func (s *Service) cancelCheckout(ctx context.Context, user int64) (Reply, error) {
	if err := s.Checkout.Cancel(ctx, user); err != nil {
		return Reply{}, err
	}
	return Reply{
		Text: "Checkout cancelled. Your cart is unchanged.",
		Buttons: [][]Button{
			row(btn("🛒 View Cart", kind(KindViewCart))),
			row(btn("↩️ Back to Menu", kind(KindStart))),
		},
	}, nil
}

// userOrders shows one page of the user's orders, newest first.
func (s *Service) userOrders(user int64, delta int) Reply {
	list := s.Orders.ByUser(user)
	if len(list) == 0 {
		return Reply{
			Text: "📦 You have no orders yet.",
			Buttons: [][]Button{
				row(btn("Shop Now", kind(KindViewProducts))),
				row(btn("↩️ Back to Menu", kind(KindStart))),
			},
		}
	}
	v := s.viewOf(user)
	if delta == 0 {
		v.userPage = 0
	}
	page := orders.Paginate(list, s.PageSize, v.userPage+delta)
	v.userPage = page.Index

	var b strings.Builder
	fmt.Fprintf(&b, "📦 Your Order History 📦\nPage %d of %d\n\n", page.Index+1, page.Count)
	for i, o := range page.Items {
		if i > 0 {
			b.WriteString("\n────────\n\n")
		}
		s.writeOrder(&b, o, false)
	}
	rows := appendRow(nil, pager(page, KindUserPrevPage, KindUserNextPage))
	rows = append(rows,
		row(btn("📝 Update Shipping", kind(KindUpdateShipping))),
		row(btn("🛍 New Order", kind(KindViewProducts)), btn("↩️ Menu", kind(KindStart))),
	)
	return Reply{Text: b.String(), Buttons: rows}
}

func (s *Service) editableOrders(user int64) Reply {
	list := s.Readdress.Editable(user)
	if len(list) == 0 {
		return Reply{
			Text:    "None of your orders can have their shipping address changed.",
			Buttons: [][]Button{row(btn("↩️ Back to Orders", kind(KindViewOrders)))},
		}
	}
	var b strings.Builder
	b.WriteString("📝 Update Shipping Address 📝\n\nSelect an order:\n\n")
	var rows [][]Button
	for _, o := range list {
		fmt.Fprintf(&b, "Order ID: %s\nCurrent Address:\n%s\n\n", o.ID, o.ShippingAddress)
		rows = append(rows, row(btn("Update "+o.ID, Command{Kind: KindUpdateShippingOrder, OrderID: o.ID})))
	}
	rows = append(rows, row(btn("↩️ Back to Orders", kind(KindViewOrders))))
	return Reply{Text: b.String(), Buttons: rows}
}

func (s *Service) beginReaddress(ctx context.Context, user int64, id string) (Reply, error) {
	o, err := s.Readdress.Begin(ctx, user, id)
	if err != nil {
		return Reply{}, err
	}
	return Reply{
		Text: fmt.Sprintf("📝 Update Shipping Address\n\nOrder ID: %s\n\nCurrent Address:\n%s\n\n"+
			"Please send the new shipping address.", o.ID, o.ShippingAddress),
		Buttons: [][]Button{row(btn("✖️ Cancel", kind(KindViewOrders)))},
	}, nil
}

func (s *Service) submitReaddress(ctx context.Context, user int64, text string) (Reply, error) {
	o, err := s.Readdress.Submit(ctx, user, text)
	if msg, ok := inputMessage(err); ok {
		return Reply{Text: msg, Buttons: [][]Button{row(btn("✖️ Cancel", kind(KindViewOrders)))}}, nil
	}
	if errors.Is(err, orders.ErrNotEditable) || errors.Is(err, orders.ErrNotFound) {
		// The order moved on while the user was typing. Nothing left to edit.
		if cerr := s.Readdress.Cancel(ctx, user); cerr != nil {
			s.Log.WarnContext(ctx, "cancel flow", "flow", "readdress", "user_id", user, "err", cerr)
		}
		return Reply{}, err
	}
	if err != nil {
		return Reply{}, err
	}
	s.save(ctx, persist.DocOrders)
	s.emit(ctx, orders.TopicOrders, orders.EventShippingUpdated, o.ID, orders.PartitionKey(o.ID),
		orders.ShippingUpdatedPayload{OrderID: o.ID, UserID: o.UserID})

	return Reply{
		Text: fmt.Sprintf("✅ Shipping address updated.\n\nOrder ID: %s\n\nNew Address:\n%s",
			o.ID, o.ShippingAddress),
		Buttons: [][]Button{
			row(btn("📦 View Orders", kind(KindViewOrders))),
			row(btn("↩️ Back to Menu", kind(KindStart))),
		},
	}, nil
}
