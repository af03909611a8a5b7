package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/usgears/storefront/app/models"
	"github.com/usgears/storefront/pkg/event"
	"github.com/usgears/storefront/pkg/logger"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderConfirmed     = "order.confirmed"
)

// OrderEvent is the payload of every order.* event. From is empty for
// order.created.
type OrderEvent struct {
	Order *models.Order
	From  models.OrderStatus
	To    models.OrderStatus
}

// ConfirmationRequest identifies the confirmation email for one order.
type ConfirmationRequest struct {
	OrderID    string `json:"orderId"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	TrackingID string `json:"trackingId"`
}

// ConfirmationQueue hands confirmation emails to background workers.
type ConfirmationQueue interface {
	QueueConfirmation(ctx context.Context, req ConfirmationRequest) error
}

// CatalogCache drops cached catalog reads once verification has moved stock.
type CatalogCache interface {
	InvalidateCatalog(ctx context.Context)
}

type PlaceOrderInput struct {
	Billing        models.Billing    `json:"billing"`
	CartItems      []models.CartItem `json:"cartItems"      validate:"required,min=1,dive"`
	Payment        models.Payment    `json:"payment"`
	ShippingMethod string            `json:"shippingMethod"`
	DeliveryMethod string            `json:"deliveryMethod"`
}

// StatusUpdate is the body of PATCH /api/order. Either field may be empty.
type StatusUpdate struct {
	Status     string `json:"status"`
	TrackingID string `json:"trackingId"`
}

type OrderService struct {
	orders        OrderRepository
	products      ProductRepository
	confirmations ConfirmationQueue
	catalog       CatalogCache
	now           func() time.Time
}

func NewOrderService(orders OrderRepository, products ProductRepository, confirmations ConfirmationQueue, catalog CatalogCache) *OrderService {
	return &OrderService{
		orders:        orders,
		products:      products,
		confirmations: confirmations,
		catalog:       catalog,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Place stores a new unverified order. Totals sent by the browser are
// ignored and recomputed from the cart lines.
func (s *OrderService) Place(ctx context.Context, in PlaceOrderInput) (*models.Order, error) {
	if len(in.CartItems) == 0 {
		return nil, ErrMissingFields
	}

	method := in.ShippingMethod
	if method == "" {
		method = in.DeliveryMethod
	}

	catalog, err := s.products.FindMany(ctx, resolvableIDs(in.CartItems))
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}
	lines := make([]LinePrice, 0, len(in.CartItems))
	for i, it := range in.CartItems {
		if id, err := primitive.ObjectIDFromHex(it.ID); err == nil {
			if p, ok := catalog[id]; ok {
				in.CartItems[i].Price = p.Price
			}
		}
		lines = append(lines, LinePrice{Price: in.CartItems[i].Price, Quantity: it.Quantity})
	}
	totals := ComputeTotals(lines, method)

	payment := in.Payment
	if len(payment.Proofs) == 0 {
		payment.Proofs = payment.ProofFileIDs
	}
	if len(payment.ProofFileIDs) == 0 {
		payment.ProofFileIDs = payment.Proofs
	}
	if payment.Proofs == nil {
		payment.Proofs, payment.ProofFileIDs = []string{}, []string{}
	}

	now := s.now()
	o := &models.Order{
		Billing:        in.Billing,
		CartItems:      in.CartItems,
		Payment:        payment,
		Subtotal:       Float(totals.Subtotal),
		ShippingCost:   Float(totals.Shipping),
		Total:          Float(totals.Total),
		ShippingMethod: method,
		DeliveryMethod: method,
		Status:         models.StatusUnverified,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	logger.WithCtx(ctx).Info("order placed", "order_id", o.ID.Hex(), "total", o.Total, "items", len(o.CartItems))
	event.Fire(ctx, EventOrderCreated, OrderEvent{Order: o, To: o.Status})
	return o, nil
}

func resolvableIDs(items []models.CartItem) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(items))
	for _, it := range items {
		if id, err := primitive.ObjectIDFromHex(it.ID); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// List returns orders newest first, optionally filtered by status.
func (s *OrderService) List(ctx context.Context, status string) ([]models.Order, error) {
	st := models.OrderStatus(status)
	if status != "" && !st.Valid() {
		return nil, ErrInvalidStatus
	}
	orders, err := s.orders.List(ctx, st)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

func (s *OrderService) Find(ctx context.Context, rawID string) (*models.Order, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}
	return s.orders.Find(ctx, id)
}

// Info is the public order summary. Malformed ids read as unknown orders.
func (s *OrderService) Info(ctx context.Context, rawID string) (models.OrderInfo, error) {
	id, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return models.OrderInfo{}, ErrNotFound
	}
	o, err := s.orders.Find(ctx, id)
	if err != nil {
		return models.OrderInfo{}, err
	}
	return o.Info(), nil
}

// UpdateStatus moves an order one step along unverified → verified →
// confirmed, or only changes its tracking id when the status is unchanged.
func (s *OrderService) UpdateStatus(ctx context.Context, rawID string, req StatusUpdate) (*models.Order, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}
	req.Status = strings.TrimSpace(req.Status)
	req.TrackingID = strings.TrimSpace(req.TrackingID)

	o, err := s.orders.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	to := o.Status
	if req.Status != "" {
		to = models.OrderStatus(req.Status)
		if !to.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, req.Status)
		}
	}

	if to == o.Status {
		if req.TrackingID == "" || req.TrackingID == o.TrackingID {
			return o, nil
		}
		ok, err := s.orders.Update(ctx, id, o.Status, OrderUpdate{TrackingID: &req.TrackingID})
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrInvalidTransition
		}
		o.TrackingID = req.TrackingID
		return o, nil
	}

	if !o.Status.Next(to) {
		return nil, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, o.Status, to)
	}

	now := s.now()
	u := OrderUpdate{Status: &to}
	if req.TrackingID != "" {
		u.TrackingID = &req.TrackingID
	}

	release := func() {}
	switch to {
	case models.StatusVerified:
		if release, err = s.reserveStock(ctx, o.CartItems); err != nil {
			return nil, err
		}
		u.VerifiedAt = &now
	case models.StatusConfirmed:
		tracking := req.TrackingID
		if tracking == "" {
			tracking = o.TrackingID
		}
		if tracking == "" {
			tracking = NewTrackingID(now)
		}
		u.TrackingID = &tracking
		u.ConfirmedAt = &now
	}

	ok, err := s.orders.Update(ctx, id, o.Status, u)
	if err != nil || !ok {
		release()
		if err != nil {
			return nil, err
		}
		return nil, ErrInvalidTransition
	}
	if to == models.StatusVerified {
		s.catalog.InvalidateCatalog(ctx)
	}

	from := o.Status
	o.Status = to
	o.UpdatedAt = now
	if u.TrackingID != nil {
		o.TrackingID = *u.TrackingID
	}
	if u.VerifiedAt != nil {
		o.VerifiedAt = u.VerifiedAt
	}
	if u.ConfirmedAt != nil {
		o.ConfirmedAt = u.ConfirmedAt
	}

	logger.WithCtx(ctx).Info("order status changed", "order_id", id.Hex(), "from", from, "to", to)
	ev := OrderEvent{Order: o, From: from, To: to}
	event.Fire(ctx, EventOrderStatusChanged, ev)
	if to == models.StatusConfirmed {
		event.Fire(ctx, EventOrderConfirmed, ev)
	}
	return o, nil
}

// reserveStock takes stock for every line whose product still exists. On
// failure nothing stays taken. The returned func gives everything back.
func (s *OrderService) reserveStock(ctx context.Context, items []models.CartItem) (func(), error) {
	catalog, err := s.products.FindMany(ctx, resolvableIDs(items))
	if err != nil {
		return nil, err
	}

	want := make(map[primitive.ObjectID]int)
	var order []primitive.ObjectID
	for _, it := range items {
		id, err := primitive.ObjectIDFromHex(it.ID)
		if err != nil {
			continue
		}
		if _, ok := catalog[id]; !ok {
			continue
		}
		if _, seen := want[id]; !seen {
			order = append(order, id)
		}
		want[id] += it.Quantity
	}

	var taken []primitive.ObjectID
	release := func() {
		rctx := context.WithoutCancel(ctx)
		for _, id := range taken {
			if err := s.products.IncrementStock(rctx, id, want[id]); err != nil {
				logger.WithCtx(ctx).Error("orders: stock rollback failed", "product_id", id.Hex(), "qty", want[id], "error", err)
			}
		}
		if len(taken) > 0 {
			s.catalog.InvalidateCatalog(rctx)
		}
	}

	for _, id := range order {
		ok, err := s.products.DecrementStock(ctx, id, want[id])
		if err != nil {
			release()
			return nil, err
		}
		if !ok {
			release()
			return nil, fmt.Errorf("%w: %s", ErrInsufficientStock, catalog[id].Name)
		}
		taken = append(taken, id)
	}
	return release, nil
}

// Delete removes an order that has not been verified yet.
func (s *OrderService) Delete(ctx context.Context, rawID string) error {
	id, err := ParseID(rawID)
	if err != nil {
		return err
	}
	o, err := s.orders.Find(ctx, id)
	if err != nil {
		return err
	}
	if o.Status != models.StatusUnverified {
		return ErrForbiddenDelete
	}
	ok, err := s.orders.DeleteIfStatus(ctx, id, models.StatusUnverified)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbiddenDelete
	}
	return nil
}

// ResendConfirmation queues the confirmation email again for an order. The
// request email is only checked for presence; the mail always goes to the
// order's billing contact.
func (s *OrderService) ResendConfirmation(ctx context.Context, req ConfirmationRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	req.TrackingID = strings.TrimSpace(req.TrackingID)
	if req.Email == "" || req.TrackingID == "" || req.OrderID == "" {
		return ErrMissingFields
	}
	o, err := s.Find(ctx, req.OrderID)
	if err != nil {
		return err
	}
	req.OrderID = o.ID.Hex()
	req.Email = o.Billing.Email
	req.Name = o.Billing.FullName()
	return s.confirmations.QueueConfirmation(ctx, req)
}

// NewTrackingID returns USG-YYYYMMDD-XXXXXXXX.
func NewTrackingID(now time.Time) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "USG-" + now.Format("20060102") + "-" + strings.ToUpper(raw[:8])
}
