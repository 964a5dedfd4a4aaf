package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-storefront-bot/internal/catalog"
	"github.com/ariefcatur/go-storefront-bot/internal/flow"
)

var ErrEmptyInput = errors.New("input is empty")

const (
	StepName        flow.Step = "name"
	StepDescription flow.Step = "description"
	StepImage       flow.Step = "image"
	StepPricing     flow.Step = "pricing"
)

// Products created through the wizard get these fixed attributes.
const (
	CustomType    = "Custom"
	CustomPotency = "N/A"
)

type Catalog interface {
	Get(name string) (catalog.Product, error)
	Create(p catalog.Product) (catalog.Product, error)
	Rename(oldName, newName string) error
	SetDescription(name, text string) error
	SetImage(name, url string) error
	SetPrices(name string, prices map[string]catalog.PriceTier) error
}

// Draft accumulates the wizard's answers. Nothing reaches the catalog
// until the pricing step parses.
type Draft struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

type Wizard struct {
	catalog Catalog
	machine *flow.Machine[Draft]
}

func NewWizard(c Catalog, sessions flow.Store[Draft]) *Wizard {
	w := &Wizard{catalog: c}
	w.machine = &flow.Machine[Draft]{
		Name:  "create-product",
		Store: sessions,
		Steps: map[flow.Step]flow.Transition[Draft]{
			StepName:        w.name,
			StepDescription: w.description,
			StepImage:       w.image,
			StepPricing:     w.pricing,
		},
	}
	return w
}

// Begin starts a fresh draft, discarding any earlier one.
func (w *Wizard) Begin(ctx context.Context, user int64) (flow.Session[Draft], error) {
	return w.machine.Begin(ctx, user, StepName, Draft{})
}

func (w *Wizard) Active(ctx context.Context, user int64) bool {
	return w.machine.Active(ctx, user)
}

// Submit feeds one answer. When the returned step is flow.Done the product
// named in the draft exists in the catalog.
func (w *Wizard) Submit(ctx context.Context, user int64, text string) (flow.Session[Draft], error) {
	return w.machine.Advance(ctx, user, "", text)
}

func (w *Wizard) Cancel(ctx context.Context, user int64) error {
	return w.machine.Cancel(ctx, user)
}

func (w *Wizard) name(_ context.Context, _ int64, d *Draft, text string) (flow.Step, error) {
	name := strings.TrimSpace(text)
	if name == "" {
		return "", catalog.ErrInvalidName
	}
	if _, err := w.catalog.Get(name); err == nil {
		return "", fmt.Errorf("%w: %s", catalog.ErrDuplicateName, name)
	}
	d.Name = name
	return StepDescription, nil
}

func (w *Wizard) description(_ context.Context, _ int64, d *Draft, text string) (flow.Step, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyInput
	}
	d.Description = text
	return StepImage, nil
}

func (w *Wizard) image(_ context.Context, _ int64, d *Draft, text string) (flow.Step, error) {
	text = strings.TrimSpace(text)
	if err := catalog.ValidateImageURL(text); err != nil {
		return "", err
	}
	d.Image = text
	return StepPricing, nil
}

// pricing commits the product. The name is checked again here since
// another product may have taken it while the wizard was open.
func (w *Wizard) pricing(_ context.Context, _ int64, d *Draft, text string) (flow.Step, error) {
	tiers, err := catalog.ParsePriceList(text)
	if err != nil {
		return "", err
	}
	_, err = w.catalog.Create(catalog.Product{
		Name:        d.Name,
		Description: d.Description,
		Type:        CustomType,
		Potency:     CustomPotency,
		Prices:      tiers,
		Image:       d.Image,
	})
	if err != nil {
		return "", err
	}
	return flow.Done, nil
}
