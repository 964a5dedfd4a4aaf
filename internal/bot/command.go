package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-storefront-bot/internal/catalog"
	"github.com/ariefcatur/go-storefront-bot/internal/orders"
)

var ErrUnknownCommand = errors.New("unknown command")

// Kind is the closed set of button actions.
type Kind int

const (
	KindUnknown Kind = iota

	KindStart
	KindHelp
	KindLabResults
	KindViewProducts
	KindNextProduct
	KindPrevProduct
	KindViewCategory // Product, Category
	KindAddToCart    // Product, Tier
	KindViewCart
	KindClearCart

	KindCheckout
	KindCheckoutResume
	KindCheckoutCancel
	KindPayment // Method
	KindChangePayment
	KindConfirmPayment

	KindViewOrders
	KindUserNextPage
	KindUserPrevPage
	KindUpdateShipping
	KindUpdateShippingOrder // OrderID

	KindAdminPanel
	KindAdminViewOrders
	KindAdminNextPage
	KindAdminPrevPage
	KindAdminSearchOrders
	KindAdminFilter       // Status, empty for all
	KindAdminUpdateStatus // OrderID
	KindAdminSetStatus    // OrderID, Status
	KindAdminDeleteConfirm
	KindAdminDeleteOrder
	KindAdminDeleteAllConfirm
	KindAdminDeleteAll
	KindAdminStats
	KindAdminManageProducts
	KindAdminCreateProduct
	KindAdminEditName // Product
	KindAdminEditDesc
	KindAdminEditImage
	KindAdminEditPrices
)

// Command is a parsed button token. Only the fields named next to its Kind
// are set.
type Command struct {
	Kind     Kind
	Product  string
	Tier     string
	Category catalog.Category
	OrderID  string
	Status   orders.Status
	Method   orders.PaymentMethod
}

func (c Command) Admin() bool { return c.Kind >= KindAdminPanel }

var exact = map[string]Kind{
	"start":                    KindStart,
	"help":                     KindHelp,
	"lab_results":              KindLabResults,
	"view_products":            KindViewProducts,
	"next_product":             KindNextProduct,
	"prev_product":             KindPrevProduct,
	"view_cart":                KindViewCart,
	"clear_cart":               KindClearCart,
	"checkout":                 KindCheckout,
	"checkout_resume":          KindCheckoutResume,
	"checkout_cancel":          KindCheckoutCancel,
	"change_payment":           KindChangePayment,
	"confirm_payment":          KindConfirmPayment,
	"view_orders":              KindViewOrders,
	"user_next_page":           KindUserNextPage,
	"user_prev_page":           KindUserPrevPage,
	"update_shipping":          KindUpdateShipping,
	"admin_panel":              KindAdminPanel,
	"admin_view_orders":        KindAdminViewOrders,
	"admin_next_page":          KindAdminNextPage,
	"admin_prev_page":          KindAdminPrevPage,
	"admin_search_orders":      KindAdminSearchOrders,
	"admin_delete_all_confirm": KindAdminDeleteAllConfirm,
	"admin_delete_all_orders":  KindAdminDeleteAll,
	"admin_stats":              KindAdminStats,
	"admin_manage_products":    KindAdminManageProducts,
	"admin_create_product":     KindAdminCreateProduct,
}

// filterAll clears the admin order list's status filter.
const filterAll = "all"

var exactToken = func() map[Kind]string {
	m := make(map[Kind]string, len(exact))
	for tok, k := range exact {
		m[k] = tok
	}
	return m
}()

var paymentTokens = map[string]orders.PaymentMethod{
	"payment_btc": orders.PaymentBitcoin,
	"payment_xmr": orders.PaymentMonero,
}

// Prefixed tokens carry data after a fixed prefix. More specific prefixes
// come first.
var prefixes = []struct {
	prefix string
	parse  func(rest string) (Command, bool)
}{
	{"view_personal_", category(catalog.CategoryPersonal)},
	{"view_bulk_", category(catalog.CategoryBulk)},
	{"view_wholesale_", category(catalog.CategoryWholesale)},
	{"add_to_cart_", func(rest string) (Command, bool) {
		name, tier, ok := splitLast(rest)
		return Command{Kind: KindAddToCart, Product: name, Tier: tier}, ok
	}},
	{"update_shipping_", orderID(KindUpdateShippingOrder)},
	{"admin_update_status_", orderID(KindAdminUpdateStatus)},
	{"admin_set_status_", func(rest string) (Command, bool) {
		id, st, ok := splitLast(rest)
		status := orders.Status(st)
		return Command{Kind: KindAdminSetStatus, OrderID: id, Status: status}, ok && status.Valid()
	}},
	{"admin_filter_", func(rest string) (Command, bool) {
		if rest == filterAll {
			return Command{Kind: KindAdminFilter}, true
		}
		status := orders.Status(rest)
		return Command{Kind: KindAdminFilter, Status: status}, status.Valid()
	}},
	{"admin_delete_confirm_", orderID(KindAdminDeleteConfirm)},
	{"admin_delete_order_", orderID(KindAdminDeleteOrder)},
	{"admin_edit_product_", product(KindAdminEditName)},
	{"admin_edit_desc_", product(KindAdminEditDesc)},
	{"admin_edit_image_", product(KindAdminEditImage)},
	{"admin_edit_prices_", product(KindAdminEditPrices)},
}

func category(c catalog.Category) func(string) (Command, bool) {
	return func(rest string) (Command, bool) {
		return Command{Kind: KindViewCategory, Product: rest, Category: c}, rest != ""
	}
}

func orderID(k Kind) func(string) (Command, bool) {
	return func(rest string) (Command, bool) {
		return Command{Kind: k, OrderID: rest}, rest != ""
	}
}

func product(k Kind) func(string) (Command, bool) {
	return func(rest string) (Command, bool) {
		return Command{Kind: k, Product: rest}, rest != ""
	}
}

// splitLast splits at the final underscore: everything before it is the
// name, which may itself contain underscores.
func splitLast(s string) (string, string, bool) {
	i := strings.LastIndex(s, "_")
	if i <= 0 || i == len(s)-1 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}

// ParseToken turns a button token into a Command. Exact tokens win over
// prefixes, so "update_shipping" never parses as an order id.
func ParseToken(tok string) (Command, error) {
	if k, ok := exact[tok]; ok {
		return Command{Kind: k}, nil
	}
	if m, ok := paymentTokens[tok]; ok {
		return Command{Kind: KindPayment, Method: m}, nil
	}
	for _, p := range prefixes {
		if rest, found := strings.CutPrefix(tok, p.prefix); found {
			if c, ok := p.parse(rest); ok {
				return c, nil
			}
			break
		}
	}
	return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, tok)
}

// Token encodes c back into the button token ParseToken accepts.
func (c Command) Token() string {
	if tok, ok := exactToken[c.Kind]; ok {
		return tok
	}
	switch c.Kind {
	case KindViewCategory:
		return "view_" + string(c.Category) + "_" + c.Product
	case KindAddToCart:
		return "add_to_cart_" + c.Product + "_" + c.Tier
	case KindPayment:
		if c.Method == orders.PaymentMonero {
			return "payment_xmr"
		}
		return "payment_btc"
	case KindUpdateShippingOrder:
		return "update_shipping_" + c.OrderID
	case KindAdminUpdateStatus:
		return "admin_update_status_" + c.OrderID
	case KindAdminSetStatus:
		return "admin_set_status_" + c.OrderID + "_" + string(c.Status)
	case KindAdminFilter:
		if c.Status == "" {
			return "admin_filter_" + filterAll
		}
		return "admin_filter_" + string(c.Status)
	case KindAdminDeleteConfirm:
		return "admin_delete_confirm_" + c.OrderID
	case KindAdminDeleteOrder:
		return "admin_delete_order_" + c.OrderID
	case KindAdminEditName:
		return "admin_edit_product_" + c.Product
	case KindAdminEditDesc:
		return "admin_edit_desc_" + c.Product
	case KindAdminEditImage:
		return "admin_edit_image_" + c.Product
	case KindAdminEditPrices:
		return "admin_edit_prices_" + c.Product
	}
	return ""
}
