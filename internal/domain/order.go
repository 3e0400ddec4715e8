package domain

import "time"

// OrderContext is the ephemeral order-line input to a resolution. It is
// built by the caller per request and never persisted by the engine except
// as part of a resolution record for audit.
type OrderContext struct {
	CustomerID string     `json:"customerId"`
	Attributes Attributes `json:"attributes,omitempty"`

	ProductID string `json:"productId"`

	// BundleProductIDs lists every product on the order, used by
	// product_bundle membership checks. ProductID is implied.
	BundleProductIDs []string `json:"bundleProductIds,omitempty"`

	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unitPrice"`
	OrderDate time.Time `json:"orderDate"`
}

// Subtotal is the undiscounted line total.
func (c *OrderContext) Subtotal() float64 {
	return c.UnitPrice * float64(c.Quantity)
}

// HasProduct reports whether the order carries the product, counting both
// the line product and any bundle products.
func (c *OrderContext) HasProduct(productID string) bool {
	if c.ProductID == productID {
		return true
	}
	for _, id := range c.BundleProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}
