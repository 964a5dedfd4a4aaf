package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-storefront-bot/internal/catalog"
	"github.com/ariefcatur/go-storefront-bot/internal/flow"
)

type Field string

const (
	FieldName        Field = "name"
	FieldDescription Field = "description"
	FieldImage       Field = "image"
	FieldPrices      Field = "prices"
)

const stepValue flow.Step = "value"

type Edit struct {
	Product string `json:"product"`
	Field   Field  `json:"field"`

	// Renamed holds the new name after a successful rename.
	Renamed string `json:"renamed,omitempty"`
}

// Editor changes one field of an existing product from a single text reply.
type Editor struct {
	catalog Catalog
	machine *flow.Machine[Edit]
}

func NewEditor(c Catalog, sessions flow.Store[Edit]) *Editor {
	e := &Editor{catalog: c}
	e.machine = &flow.Machine[Edit]{
		Name:  "edit-product",
		Store: sessions,
		Steps: map[flow.Step]flow.Transition[Edit]{stepValue: e.apply},
	}
	return e
}

func (e *Editor) Begin(ctx context.Context, user int64, product string, field Field) (catalog.Product, error) {
	p, err := e.catalog.Get(product)
	if err != nil {
		return p, err
	}
	switch field {
	case FieldName, FieldDescription, FieldImage, FieldPrices:
	default:
		return p, fmt.Errorf("unknown field %q", field)
	}
	_, err = e.machine.Begin(ctx, user, stepValue, Edit{Product: product, Field: field})
	return p, err
}

func (e *Editor) Active(ctx context.Context, user int64) bool {
	return e.machine.Active(ctx, user)
}

// Pending returns the edit waiting for a value.
func (e *Editor) Pending(ctx context.Context, user int64) (Edit, error) {
	s, err := e.machine.Current(ctx, user)
	return s.Data, err
}

// Submit applies text to the pending edit. On error the edit stays open so
// the admin can try again.
func (e *Editor) Submit(ctx context.Context, user int64, text string) (Edit, error) {
	s, err := e.machine.Advance(ctx, user, stepValue, text)
	return s.Data, err
}

func (e *Editor) Cancel(ctx context.Context, user int64) error {
	return e.machine.Cancel(ctx, user)
}

func (e *Editor) apply(_ context.Context, _ int64, d *Edit, text string) (flow.Step, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyInput
	}
	switch d.Field {
	case FieldName:
		if err := e.catalog.Rename(d.Product, text); err != nil {
			return "", err
		}
		d.Renamed = text
	case FieldDescription:
		if err := e.catalog.SetDescription(d.Product, text); err != nil {
			return "", err
		}
	case FieldImage:
		if err := e.catalog.SetImage(d.Product, text); err != nil {
			return "", err
		}
	case FieldPrices:
		tiers, err := catalog.ParsePriceList(text)
		if err != nil {
			return "", err
		}
		if err := e.catalog.SetPrices(d.Product, tiers); err != nil {
			return "", err
		}
	}
	return flow.Done, nil
}
