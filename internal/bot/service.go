// Package bot turns chat events into replies. It owns no state of its own
// beyond per-user view positions; everything else lives in the stores and
// session machines it is built from.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront-bot/internal/admin"
	"github.com/ariefcatur/go-storefront-bot/internal/cart"
	"github.com/ariefcatur/go-storefront-bot/internal/catalog"
	"github.com/ariefcatur/go-storefront-bot/internal/checkout"
	"github.com/ariefcatur/go-storefront-bot/internal/flow"
	"github.com/ariefcatur/go-storefront-bot/internal/notify"
	"github.com/ariefcatur/go-storefront-bot/internal/orders"
	"github.com/ariefcatur/go-storefront-bot/internal/persist"
)

// Saver is satisfied by *persist.Manager.
type Saver interface {
	Save(ctx context.Context, docs ...persist.Document) error
}

// EventEmitter is satisfied by *notify.Emitter.
type EventEmitter interface {
	Emit(ctx context.Context, topic, eventType, correlationID string, key []byte, payload any)
}

type Deps struct {
	Catalog   *catalog.Store
	Carts     *cart.Store
	Orders    *orders.Store
	Checkout  *checkout.Service
	Readdress *checkout.Readdress
	Wizard    *admin.Wizard
	Editor    *admin.Editor
	Gate      *admin.Gate
	Saver     Saver
	Notifier  notify.Notifier
	Events    EventEmitter
	PageSize  int
	Log       *slog.Logger
}

type Service struct {
	Deps
	now func() time.Time

	locks keyedMutex

	viewMu sync.Mutex
	views  map[int64]*view
}

// view is where a user currently is in the paged screens.
type view struct {
	product   int
	userPage  int
	adminPage int
	filter    orders.Status
}

func (v *view) clearAdmin() {
	v.adminPage = 0
	v.filter = ""
}

func New(d Deps) *Service {
	if d.PageSize <= 0 {
		d.PageSize = 5
	}
	return &Service{Deps: d, now: time.Now, views: make(map[int64]*view)}
}

// SetClock replaces the time source used for dated screens.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Handle processes one event. Events of the same user are serialized;
// different users proceed in parallel. Handle never panics and always
// returns something to show.
func (s *Service) Handle(ctx context.Context, ev Event) (r Reply) {
	unlock := s.locks.Lock(ev.UserID)
	defer unlock()
	defer func() {
		if p := recover(); p != nil {
			s.Log.ErrorContext(ctx, "handler panic",
				"user_id", ev.UserID, "kind", ev.Kind, "token", ev.Token,
				"panic", fmt.Sprint(p), "stack", string(debug.Stack()))
			r = Reply{Text: msgInternal, Buttons: [][]Button{row(btn("Back to Menu", kind(KindStart)))}}
		}
	}()

	var err error
	switch ev.Kind {
	case EventStart:
		r, err = s.startCommand(ctx, ev)
	case EventButton:
		var cmd Command
		if cmd, err = ParseToken(ev.Token); err == nil {
			r, err = s.dispatch(ctx, ev, cmd)
		}
	case EventText:
		r, err = s.handleText(ctx, ev)
	default:
		err = fmt.Errorf("%w: event kind %q", ErrUnknownCommand, ev.Kind)
	}
	if err != nil {
		return s.failure(ctx, ev, err)
	}
	return r
}

func (s *Service) dispatch(ctx context.Context, ev Event, cmd Command) (Reply, error) {
	if cmd.Admin() {
		if err := s.Gate.Check(ev.UserID, ev.Username, cmd.Token()); err != nil {
			return Reply{}, err
		}
	}
	if leavesFlows(cmd.Kind) {
		s.cancelFlows(ctx, ev.UserID)
	}

	user := ev.UserID
	switch cmd.Kind {
	case KindStart:
		return s.mainMenu(), nil
	case KindHelp:
		return helpReply(), nil
	case KindLabResults:
		return s.labResults(), nil
	case KindViewProducts:
		return s.showProduct(user, 0), nil
	case KindNextProduct:
		return s.showProduct(user, 1), nil
	case KindPrevProduct:
		return s.showProduct(user, -1), nil
	case KindViewCategory:
		return s.showCategory(user, cmd.Product, cmd.Category)
	case KindAddToCart:
		return s.addToCart(ctx, user, cmd.Product, cmd.Tier)
	case KindViewCart:
		return s.viewCart(user), nil
	case KindClearCart:
		return s.clearCart(ctx, user), nil

	case KindCheckout:
		return s.beginCheckout(ctx, user)
	case KindCheckoutResume:
		return s.resumeCheckout(ctx, user)
	case KindCheckoutCancel:
		return s.cancelCheckout(ctx, user)
	case KindPayment:
		return s.selectPayment(ctx, user, cmd.Method)
	case KindChangePayment:
		return s.changePayment(ctx, user)
	case KindConfirmPayment:
		return s.confirmPayment(ctx, user)

	case KindViewOrders:
		return s.userOrders(user, 0), nil
	case KindUserNextPage:
		return s.userOrders(user, 1), nil
	case KindUserPrevPage:
		return s.userOrders(user, -1), nil
	case KindUpdateShipping:
		return s.editableOrders(user), nil
	case KindUpdateShippingOrder:
		return s.beginReaddress(ctx, user, cmd.OrderID)

	case KindAdminPanel:
		s.viewOf(user).clearAdmin()
		return s.adminPanel(), nil
	case KindAdminViewOrders:
		// The filter only survives paging and status or delete round-trips.
		return s.adminFilter(user, ""), nil
	case KindAdminNextPage:
		return s.adminOrders(user, 1), nil
	case KindAdminPrevPage:
		return s.adminOrders(user, -1), nil
	case KindAdminSearchOrders:
		return adminSearch(), nil
	case KindAdminFilter:
		return s.adminFilter(user, cmd.Status), nil
	case KindAdminUpdateStatus:
		return s.adminStatusMenu(cmd.OrderID)
	case KindAdminSetStatus:
		return s.adminSetStatus(ctx, user, cmd.OrderID, cmd.Status)
	case KindAdminDeleteConfirm:
		return s.adminDeleteConfirm(cmd.OrderID)
	case KindAdminDeleteOrder:
		return s.adminDeleteOrder(ctx, user, cmd.OrderID)
	case KindAdminDeleteAllConfirm:
		return s.adminDeleteAllConfirm(), nil
	case KindAdminDeleteAll:
		return s.adminDeleteAll(ctx), nil
	case KindAdminStats:
		return s.adminStats(), nil
	case KindAdminManageProducts:
		return s.adminProducts(), nil
	case KindAdminCreateProduct:
		return s.adminCreateProduct(ctx, user)
	case KindAdminEditName:
		return s.adminEdit(ctx, user, cmd.Product, admin.FieldName)
	case KindAdminEditDesc:
		return s.adminEdit(ctx, user, cmd.Product, admin.FieldDescription)
	case KindAdminEditImage:
		return s.adminEdit(ctx, user, cmd.Product, admin.FieldImage)
	case KindAdminEditPrices:
		return s.adminEdit(ctx, user, cmd.Product, admin.FieldPrices)
	}
	return Reply{}, fmt.Errorf("%w: kind %d", ErrUnknownCommand, cmd.Kind)
}

// leavesFlows reports whether k navigates back to a top-level screen.
// Those abandon any open text flow so a later message is not taken as an
// answer to a question the user has left.
func leavesFlows(k Kind) bool {
	switch k {
	case KindStart, KindHelp, KindLabResults, KindViewProducts, KindViewCart,
		KindClearCart, KindViewOrders, KindAdminPanel, KindAdminManageProducts,
		KindAdminViewOrders:
		return true
	}
	return false
}

func (s *Service) cancelFlows(ctx context.Context, user int64) {
	for name, cancel := range map[string]func(context.Context, int64) error{
		"checkout":  s.Checkout.Cancel,
		"readdress": s.Readdress.Cancel,
		"wizard":    s.Wizard.Cancel,
		"editor":    s.Editor.Cancel,
	} {
		if err := cancel(ctx, user); err != nil {
			s.Log.WarnContext(ctx, "cancel flow", "flow", name, "user_id", user, "err", err)
		}
	}
}

// startCommand resets the user's cart and open flows, then shows the
// admin panel to the admin and the main menu to everyone else.
func (s *Service) startCommand(ctx context.Context, ev Event) (Reply, error) {
	s.cancelFlows(ctx, ev.UserID)
	s.Carts.Clear(ev.UserID)
	s.save(ctx, persist.DocCarts)

	s.viewMu.Lock()
	delete(s.views, ev.UserID)
	s.viewMu.Unlock()

	if s.Gate.IsAdmin(ev.Username) {
		return s.adminPanel(), nil
	}
	return s.mainMenu(), nil
}

// handleText routes free text to whichever flow is waiting for it.
func (s *Service) handleText(ctx context.Context, ev Event) (Reply, error) {
	user := ev.UserID
	switch {
	case s.Editor.Active(ctx, user):
		if err := s.Gate.Check(user, ev.Username, "edit_product"); err != nil {
			return Reply{}, err
		}
		return s.submitEdit(ctx, user, ev.Text)
	case s.Wizard.Active(ctx, user):
		if err := s.Gate.Check(user, ev.Username, "create_product"); err != nil {
			return Reply{}, err
		}
		return s.submitWizard(ctx, user, ev.Text)
	case s.Readdress.Active(ctx, user):
		return s.submitReaddress(ctx, user, ev.Text)
	}

	cur, err := s.Checkout.Current(ctx, user)
	switch {
	case err == nil && cur.Step == checkout.StepShipping:
		return s.submitShipping(ctx, user, ev.Text)
	case err == nil:
		r, err := s.checkoutScreen(ctx, user, cur)
		r.Alert = "Please use the buttons to continue your checkout."
		return r, err
	case !errors.Is(err, flow.ErrNoSession):
		return Reply{}, err
	}
	return Reply{
		Text:    "Use /start to open the menu.",
		Buttons: [][]Button{row(btn("Main Menu", kind(KindStart)))},
	}, nil
}

const msgInternal = "Something went wrong. Please try again."

// failure maps an error to something the user can act on. Expected
// business errors are logged quietly; anything else at error level.
func (s *Service) failure(ctx context.Context, ev Event, err error) Reply {
	menu := [][]Button{row(btn("Back to Menu", kind(KindStart)))}
	attrs := []any{"user_id", ev.UserID, "kind", ev.Kind, "token", ev.Token, "err", err}

	switch {
	case errors.Is(err, admin.ErrForbidden):
		return Reply{Alert: "Access denied."}
	case errors.Is(err, ErrUnknownCommand):
		s.Log.WarnContext(ctx, "unknown command", attrs...)
		return Reply{Alert: "This button is no longer valid.", Text: "Please choose an option.", Buttons: menu}
	case errors.Is(err, checkout.ErrEmptyCart):
		return emptyCartReply()
	case errors.Is(err, cart.ErrDanglingReference):
		return Reply{
			Text: "Some items in your cart are no longer available. Please clear your cart and add them again.",
			Buttons: [][]Button{
				row(btn("Clear Cart", kind(KindClearCart))),
				row(btn("View Cart", kind(KindViewCart))),
			},
		}
	case errors.Is(err, cart.ErrQuantityLimit):
		return Reply{Alert: "You already have the maximum quantity of this item in your cart."}
	case errors.Is(err, catalog.ErrNotFound):
		return Reply{
			Text:    "That product is no longer available.",
			Buttons: [][]Button{row(btn("Browse Products", kind(KindViewProducts))), menu[0]},
		}
	case errors.Is(err, orders.ErrNotFound):
		return Reply{Text: "Order not found.", Buttons: menu}
	case errors.Is(err, orders.ErrNotEditable):
		return Reply{
			Text:    "This order can no longer be changed.",
			Buttons: [][]Button{row(btn("Your Orders", kind(KindViewOrders))), menu[0]},
		}
	case errors.Is(err, flow.ErrNoSession), errors.Is(err, flow.ErrUnexpectedStep):
		s.Log.DebugContext(ctx, "stale step", attrs...)
		return Reply{Text: "This step has expired. Please start again.", Buttons: menu}
	}
	s.Log.ErrorContext(ctx, "handle event", attrs...)
	return Reply{Text: msgInternal, Buttons: menu}
}

// inputMessage explains why a typed answer was rejected. ok is false for
// errors that are not about the input.
func inputMessage(err error) (msg string, ok bool) {
	switch {
	case errors.Is(err, catalog.ErrInvalidPriceList):
		return "Invalid pricing format: " + err.Error() +
			"\nEach entry must have 4 comma-separated values: weight,price,unit,description.", true
	case errors.Is(err, catalog.ErrInvalidImage):
		return "Please send a valid image URL starting with http:// or https://", true
	case errors.Is(err, catalog.ErrDuplicateName):
		return "A product with that name already exists. Please choose a different name.", true
	case errors.Is(err, catalog.ErrInvalidName), errors.Is(err, admin.ErrEmptyInput):
		return "Please send a non-empty value.", true
	case errors.Is(err, checkout.ErrEmptyShipping):
		return "Please send your shipping information.", true
	}
	return "", false
}

// save persists docs. A failed save keeps the in-memory change; the
// manager records it for health checks.
func (s *Service) save(ctx context.Context, docs ...persist.Document) {
	if s.Saver == nil {
		return
	}
	if err := s.Saver.Save(ctx, docs...); err != nil {
		s.Log.WarnContext(ctx, "state not persisted", "docs", docs, "err", err)
	}
}

func (s *Service) notify(ctx context.Context, user int64, text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Notify(ctx, notify.Message{UserID: user, Text: text}); err != nil {
		s.Log.WarnContext(ctx, "notify user", "user_id", user, "err", err)
	}
}

func (s *Service) emit(ctx context.Context, topic, eventType, correlationID string, key []byte, payload any) {
	if s.Events == nil {
		return
	}
	s.Events.Emit(ctx, topic, eventType, correlationID, key, payload)
}

// viewOf returns the user's view state. The caller holds the user's lock,
// so the returned pointer is not shared with a concurrent handler.
func (s *Service) viewOf(user int64) *view {
	s.viewMu.Lock()
	defer s.viewMu.Unlock()
	v, ok := s.views[user]
	if !ok {
		v = &view{}
		s.views[user] = v
	}
	return v
}

// keyedMutex serializes work per user id. Entries are dropped once no
// goroutine holds or waits on them.
type keyedMutex struct {
	mu sync.Mutex
	m  map[int64]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(id int64) (unlock func()) {
	k.mu.Lock()
	if k.m == nil {
		k.m = make(map[int64]*keyedEntry)
	}
	e, ok := k.m[id]
	if !ok {
		e = &keyedEntry{}
		k.m[id] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.m, id)
		}
		k.mu.Unlock()
	}
}
