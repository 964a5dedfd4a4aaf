package catalog

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Store keeps products in insertion order, which is the browse order.
// Images are held in their own map keyed by product name.
type Store struct {
	mu       sync.RWMutex
	order    []string
	products map[string]Product
	images   map[string]string
}

func NewStore() *Store {
	return &Store{
		products: make(map[string]Product),
		images:   make(map[string]string),
	}
}

func (s *Store) Get(name string) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLocked(name)
}

func (s *Store) getLocked(name string) (Product, error) {
	p, ok := s.products[name]
	if !ok {
		return Product{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	p = p.clone()
	p.Image = s.images[name]
	return p, nil
}

func (s *Store) List() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, 0, len(s.order))
	for _, name := range s.order {
		p, _ := s.getLocked(name)
		out = append(out, p)
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Tier resolves a product's price tier at call time.
func (s *Store) Tier(product, label string) (PriceTier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[product]
	if !ok {
		return PriceTier{}, fmt.Errorf("%w: %s", ErrNotFound, product)
	}
	t, ok := p.Prices[label]
	if !ok {
		return PriceTier{}, fmt.Errorf("%w: %s has no tier %s", ErrNotFound, product, label)
	}
	return t, nil
}

// Create adds p at the end of the catalog. p.Image, when set, is stored in
// the image map.
func (s *Store) Create(p Product) (Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return Product{}, ErrInvalidName
	}
	if len(p.Prices) == 0 {
		return Product{}, fmt.Errorf("%w: no tiers", ErrInvalidPriceList)
	}
	if p.Image != "" {
		if err := ValidateImageURL(p.Image); err != nil {
			return Product{}, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.Name]; ok {
		return Product{}, fmt.Errorf("%w: %s", ErrDuplicateName, p.Name)
	}
	img := p.Image
	p.Image = ""
	s.products[p.Name] = p.clone()
	s.order = append(s.order, p.Name)
	if img != "" {
		s.images[p.Name] = img
	}
	return s.getLocked(p.Name)
}

// Rename moves the product and its image to newName in one critical
// section. The renamed product goes to the end of the browse order.
func (s *Store) Rename(oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return ErrInvalidName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[oldName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, oldName)
	}
	if newName == oldName {
		return nil
	}
	if _, taken := s.products[newName]; taken {
		return fmt.Errorf("%w: %s", ErrDuplicateName, newName)
	}

	p.Name = newName
	delete(s.products, oldName)
	s.products[newName] = p
	if img, ok := s.images[oldName]; ok {
		delete(s.images, oldName)
		s.images[newName] = img
	}
	s.order = slices.DeleteFunc(s.order, func(n string) bool { return n == oldName })
	s.order = append(s.order, newName)
	return nil
}

func (s *Store) SetDescription(name, text string) error {
	return s.update(name, func(p *Product) { p.Description = text })
}

// SetPrices replaces the whole pricing map.
func (s *Store) SetPrices(name string, prices map[string]PriceTier) error {
	if len(prices) == 0 {
		return fmt.Errorf("%w: no tiers", ErrInvalidPriceList)
	}
	return s.update(name, func(p *Product) { p.Prices = maps.Clone(prices) })
}

func (s *Store) SetImage(name, url string) error {
	if err := ValidateImageURL(url); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	s.images[name] = url
	return nil
}

func (s *Store) update(name string, fn func(*Product)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	p = p.clone()
	fn(&p)
	s.products[name] = p
	return nil
}

// Document returns a copy of the catalog in persisted form.
func (s *Store) Document() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := Document{
		Catalog: make([]Product, 0, len(s.order)),
		Images:  maps.Clone(s.images),
	}
	for _, name := range s.order {
		doc.Catalog = append(doc.Catalog, s.products[name].clone())
	}
	return doc
}

// Restore replaces the store's contents with doc. Images for unknown
// products are dropped.
func (s *Store) Restore(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = make([]string, 0, len(doc.Catalog))
	s.products = make(map[string]Product, len(doc.Catalog))
	s.images = make(map[string]string, len(doc.Images))
	for _, p := range doc.Catalog {
		if _, dup := s.products[p.Name]; dup || p.Name == "" {
			continue
		}
		p.Image = ""
		s.products[p.Name] = p.clone()
		s.order = append(s.order, p.Name)
	}
	for name, url := range doc.Images {
		if _, ok := s.products[name]; ok {
			s.images[name] = url
		}
	}
}
