package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type QuoteItemInput struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type QuoteRequest struct {
	Items          []QuoteItemInput `json:"items"`
	ShippingMethod string           `json:"shippingMethod"`
}

// QuoteLine echoes a cart line priced from the catalog. Error is set for
// lines that could not be priced; they do not count towards the subtotal.
type QuoteLine struct {
	ID        string  `json:"id"`
	Name      string  `json:"name,omitempty"`
	Category  string  `json:"category,omitempty"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image,omitempty"`
	LineTotal float64 `json:"lineTotal"`
	Available bool    `json:"available"`
	Error     string  `json:"error,omitempty"`
}

type Quote struct {
	Items         []QuoteLine `json:"items"`
	Subtotal      float64     `json:"subtotal"`
	ShippingCost  float64     `json:"shippingCost"`
	Total         float64     `json:"total"`
	ShippingLabel string      `json:"shippingLabel"`
}

type CartService struct {
	products ProductRepository
}

func NewCartService(products ProductRepository) *CartService {
	return &CartService{products: products}
}

// Quote prices a browser cart. Only the flat shipping rate is charged when
// no line resolves.
func (s *CartService) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	ids := make([]primitive.ObjectID, 0, len(req.Items))
	for _, it := range req.Items {
		if id, err := primitive.ObjectIDFromHex(it.ID); err == nil {
			ids = append(ids, id)
		}
	}
	found, err := s.products.FindMany(ctx, ids)
	if err != nil {
		return Quote{}, err
	}

	lines := make([]QuoteLine, 0, len(req.Items))
	priced := make([]LinePrice, 0, len(req.Items))
	for _, it := range req.Items {
		line := QuoteLine{ID: it.ID, Quantity: it.Quantity}
		id, err := primitive.ObjectIDFromHex(it.ID)
		p, ok := found[id]
		switch {
		case err != nil || !ok:
			line.Error = "Product not found"
		case it.Quantity < 1:
			line.Error = "Quantity must be at least 1"
		default:
			line.Name, line.Category, line.Image = p.Name, p.Category, p.Image
			line.Price = p.Price
			line.LineTotal = Float(LineTotal(p.Price, it.Quantity))
			line.Available = p.InStock && p.Stock >= it.Quantity
			if !line.Available {
				line.Error = "Insufficient stock"
			}
			priced = append(priced, LinePrice{Price: p.Price, Quantity: it.Quantity})
		}
		lines = append(lines, line)
	}

	t := ComputeTotals(priced, req.ShippingMethod)
	return Quote{
		Items:         lines,
		Subtotal:      Float(t.Subtotal),
		ShippingCost:  Float(t.Shipping),
		Total:         Float(t.Total),
		ShippingLabel: t.ShippingLabel,
	}, nil
}
