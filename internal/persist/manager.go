package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront-bot/internal/cart"
	"github.com/ariefcatur/go-storefront-bot/internal/catalog"
	"github.com/ariefcatur/go-storefront-bot/internal/orders"
)

var ErrPersistence = errors.New("persistence failure")

// Health is the state of the most recent saves.
type Health struct {
	OK            bool      `json:"ok"`
	LastError     string    `json:"last_error,omitempty"`
	LastErrorAt   time.Time `json:"last_error_at,omitempty"`
	LastSuccessAt time.Time `json:"last_success_at,omitempty"`
}

// Manager loads the stores at startup and rewrites whole documents after
// each mutation. A failed save keeps the in-memory state, so memory and
// storage may differ until the next successful save.
type Manager struct {
	backend Backend
	catalog *catalog.Store
	carts   *cart.Store
	orders  *orders.Store
	log     *slog.Logger

	// writing holds one lock per document from snapshot to write, so an
	// older snapshot can never land after a newer one.
	writing map[Document]*sync.Mutex

	mu     sync.Mutex
	health Health
	failed map[Document]error
}

func NewManager(b Backend, c *catalog.Store, carts *cart.Store, ord *orders.Store, log *slog.Logger) *Manager {
	writing := make(map[Document]*sync.Mutex, len(AllDocuments))
	for _, doc := range AllDocuments {
		writing[doc] = &sync.Mutex{}
	}
	return &Manager{
		backend: b,
		writing: writing,
		catalog: c,
		carts:   carts,
		orders:  ord,
		log:     log,
		health:  Health{OK: true},
		failed:  make(map[Document]error),
	}
}

// Load fills the stores. A missing catalog means the built-in defaults, a
// missing cart or order document means empty. An unreadable catalog or
// cart document is replaced the same way; unreadable orders stop the load
// because the next save would overwrite them.
func (m *Manager) Load(ctx context.Context) error {
	doc := catalog.Defaults()
	if err := m.read(ctx, DocCatalog, &doc); err != nil {
		if !errors.Is(err, ErrNotExist) {
			m.log.Error("catalog unreadable, using defaults", "err", err)
		}
		doc = catalog.Defaults()
	}
	m.catalog.Restore(doc)

	var carts map[int64]cart.Cart
	if err := m.read(ctx, DocCarts, &carts); err != nil {
		if !errors.Is(err, ErrNotExist) {
			m.log.Error("carts unreadable, starting empty", "err", err)
		}
		carts = nil
	}
	m.carts.Restore(carts)

	var byUser map[int64][]orders.Order
	if err := m.read(ctx, DocOrders, &byUser); err != nil && !errors.Is(err, ErrNotExist) {
		return fmt.Errorf("%w: load orders: %v", ErrPersistence, err)
	}
	m.orders.Restore(byUser)

	m.log.Info("state loaded",
		"products", m.catalog.Len(),
		"carts", len(carts),
		"orders", len(m.orders.All()),
	)
	return nil
}

func (m *Manager) read(ctx context.Context, doc Document, out any) error {
	data, err := m.backend.Read(ctx, doc)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", doc, err)
	}
	return nil
}

// Save writes the named documents. Every failure is logged and reflected
// in Health; the joined error wraps ErrPersistence.
func (m *Manager) Save(ctx context.Context, docs ...Document) error {
	var errs []error
	for _, doc := range docs {
		if err := m.save(ctx, doc); err != nil {
			m.log.Error("save failed, memory and storage now differ", "doc", doc, "err", err)
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrPersistence, doc, err))
			m.record(doc, err)
			continue
		}
		m.record(doc, nil)
	}
	return errors.Join(errs...)
}

func (m *Manager) SaveAll(ctx context.Context) error {
	return m.Save(ctx, AllDocuments...)
}

func (m *Manager) save(ctx context.Context, doc Document) error {
	lock, ok := m.writing[doc]
	if !ok {
		return fmt.Errorf("unknown document %q", doc)
	}
	lock.Lock()
	defer lock.Unlock()

	var v any
	switch doc {
	case DocCatalog:
		v = m.catalog.Document()
	case DocCarts:
		v = m.carts.Snapshot()
	case DocOrders:
		v = m.orders.Snapshot()
	default:
		return fmt.Errorf("unknown document %q", doc)
	}
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	return m.backend.Write(ctx, doc, data)
}

// record tracks failures per document so a later successful save of the
// same document clears it.
func (m *Manager) record(doc Document, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if err != nil {
		m.failed[doc] = err
		m.health.LastError = fmt.Sprintf("%s: %v", doc, err)
		m.health.LastErrorAt = now
	} else {
		delete(m.failed, doc)
		m.health.LastSuccessAt = now
	}
	m.health.OK = len(m.failed) == 0
}

func (m *Manager) Health() Health {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.health
}
