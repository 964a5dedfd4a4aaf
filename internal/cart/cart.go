package cart

import (
	"errors"
	"fmt"
	"maps"
	"strings"
)

var (
	ErrInvalidKey        = errors.New("invalid cart key")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrQuantityLimit     = errors.New("quantity limit reached")
	ErrDanglingReference = errors.New("cart references a product or tier that no longer exists")
)

// Key identifies a cart line. Its text form is "<product>_<tier>"; tier
// labels never contain an underscore, so the last one splits the two.
type Key struct {
	Product string
	Tier    string
}

func (k Key) String() string { return k.Product + "_" + k.Tier }

func (k Key) MarshalText() ([]byte, error) {
	if k.Product == "" || k.Tier == "" || strings.Contains(k.Tier, "_") {
		return nil, fmt.Errorf("%w: %q/%q", ErrInvalidKey, k.Product, k.Tier)
	}
	return []byte(k.String()), nil
}

func (k *Key) UnmarshalText(b []byte) error {
	parsed, err := ParseKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func ParseKey(s string) (Key, error) {
	i := strings.LastIndex(s, "_")
	if i <= 0 || i == len(s)-1 {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	return Key{Product: s[:i], Tier: s[i+1:]}, nil
}

// Cart maps a line to its quantity. An empty cart is an empty map.
type Cart map[Key]int

func (c Cart) Clone() Cart {
	if c == nil {
		return Cart{}
	}
	return maps.Clone(c)
}

func (c Cart) Empty() bool { return len(c) == 0 }

// Units is the total number of units across all lines.
func (c Cart) Units() int {
	n := 0
	for _, q := range c {
		n += q
	}
	return n
}
