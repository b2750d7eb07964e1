package domain

// ProductSnapshot is a point-in-time copy of a product's display data,
// captured when the product is first added to a cart. It is not a live
// reference to the catalog row.
type ProductSnapshot struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"image_url"`
}

// CartLine is one product's presence in a cart. Quantity is always >= 1;
// a line that would drop to zero is deleted instead.
type CartLine struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Product   ProductSnapshot `json:"product"`
}

// CartView is the derived, read-only projection of a cart. Totals are
// recomputed from the lines on every derivation and never stored
// independently of them.
type CartView struct {
	Items      []CartLine `json:"items"`
	TotalItems int        `json:"total_items"`
	TotalPrice float64    `json:"total_price"`
}

// DeriveView recomputes a CartView from the authoritative lines.
func DeriveView(lines []CartLine) CartView {
	view := CartView{Items: lines}
	for _, line := range lines {
		view.TotalItems += line.Quantity
		view.TotalPrice += float64(line.Quantity) * line.Product.Price
	}
	return view
}
