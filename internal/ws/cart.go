package ws

import (
	"pickhub/internal/domain"
	"pickhub/internal/validate"
)

// CartItem is one line of a requester's in-progress cart.
type CartItem struct {
	UPC         string `json:"upc"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

// Cart is the per-session staging area a requester fills before submitting.
// Lines are unique by UPC and keep insertion order. Carts live only as long
// as the session; nothing is persisted until submit.
type Cart struct {
	items []CartItem
}

func (c *Cart) index(upc string) int {
	for i := range c.items {
		if c.items[i].UPC == upc {
			return i
		}
	}
	return -1
}

// Add merges qty into an existing line or appends a new one.
func (c *Cart) Add(p domain.Product, qty int) error {
	if qty < 1 || !validate.Quantity(qty, validate.MaxRequestedQty) {
		return domain.ErrInvalidInput("quantity must be between 1 and 9999")
	}
	if i := c.index(p.UPC); i >= 0 {
		next := c.items[i].Quantity + qty
		if !validate.Quantity(next, validate.MaxRequestedQty) {
			return domain.ErrInvalidInput("quantity must be between 1 and 9999")
		}
		c.items[i].Quantity = next
		return nil
	}
	c.items = append(c.items, CartItem{UPC: p.UPC, ProductName: p.Name, Quantity: qty})
	return nil
}

func (c *Cart) Remove(upc string) error {
	i := c.index(upc)
	if i < 0 {
		return domain.ErrNotFound("cart item " + upc)
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	return nil
}

// SetQuantity replaces a line's quantity; zero removes the line.
func (c *Cart) SetQuantity(upc string, qty int) error {
	if qty == 0 {
		return c.Remove(upc)
	}
	if qty < 0 || !validate.Quantity(qty, validate.MaxRequestedQty) {
		return domain.ErrInvalidInput("quantity must be between 1 and 9999")
	}
	i := c.index(upc)
	if i < 0 {
		return domain.ErrNotFound("cart item " + upc)
	}
	c.items[i].Quantity = qty
	return nil
}

func (c *Cart) Clear() { c.items = nil }

func (c *Cart) Empty() bool { return len(c.items) == 0 }

func (c *Cart) Items() []CartItem {
	return append([]CartItem(nil), c.items...)
}

func (c *Cart) TotalQuantity() int {
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}
