// Package memory implements the service repositories in process memory.
// Tests and the HTTP scenarios use it in place of MongoDB.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/usgears/storefront/app/models"
	"github.com/usgears/storefront/app/services"
	"github.com/usgears/storefront/pkg/database"
)

var (
	_ services.ProductRepository   = (*Products)(nil)
	_ services.OrderRepository     = (*Orders)(nil)
	_ services.DashboardRepository = (*Orders)(nil)
	_ services.FileRepository      = (*Files)(nil)
	_ services.UserRepository      = (*Users)(nil)
	_ services.ContactRepository   = (*Contacts)(nil)
)

type Products struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]models.Product
}

func NewProducts(ps ...models.Product) *Products {
	m := &Products{items: map[primitive.ObjectID]models.Product{}}
	for _, p := range ps {
		if p.ID.IsZero() {
			p.ID = primitive.NewObjectID()
		}
		m.items[p.ID] = p
	}
	return m
}

func (m *Products) Get(id primitive.ObjectID) models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id]
}

func (m *Products) List(_ context.Context, f services.ProductFilter, page *database.Page) ([]models.Product, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Product
	for _, p := range m.items {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.InStock != nil && p.InStock != *f.InStock {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Query)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	total := int64(len(out))
	if page != nil {
		from := min((page.Number-1)*page.PerPage, len(out))
		out = out[from:min(from+page.PerPage, len(out))]
	}
	return out, total, nil
}

func (m *Products) Find(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	return &p, nil
}

func (m *Products) FindMany(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[primitive.ObjectID]models.Product{}
	for _, id := range ids {
		if p, ok := m.items[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *Products) Create(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = primitive.NewObjectID()
	m.items[p.ID] = *p
	return nil
}

func (m *Products) Update(_ context.Context, id primitive.ObjectID, u services.ProductUpdate) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Image != nil {
		p.Image = *u.Image
	}
	if u.AdditionalImages != nil {
		p.AdditionalImages = *u.AdditionalImages
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Stock != nil {
		p.Stock = *u.Stock
	}
	if u.InStock != nil {
		p.InStock = *u.InStock
	}
	if u.Specifications != nil {
		p.Specifications = *u.Specifications
	}
	p.UpdatedAt = time.Now().UTC()
	m.items[id] = p
	return &p, nil
}

func (m *Products) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return services.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *Products) DecrementStock(_ context.Context, id primitive.ObjectID, qty int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	p.InStock = p.Stock > 0
	m.items[id] = p
	return true, nil
}

func (m *Products) IncrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.items[id]
	if p.Stock == 0 {
		p.InStock = true
	}
	p.Stock += qty
	m.items[id] = p
	return nil
}

func (m *Products) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.items)), nil
}

type Orders struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]models.Order
	// Stale makes the next Update report a concurrent change.
	Stale bool
}

func NewOrders() *Orders {
	return &Orders{items: map[primitive.ObjectID]models.Order{}}
}

func (m *Orders) Put(o models.Order) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	m.items[o.ID] = o
	return o.ID
}

func (m *Orders) Get(id primitive.ObjectID) models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id]
}

func (m *Orders) Create(_ context.Context, o *models.Order) error {
	o.ID = primitive.NewObjectID()
	m.Put(*o)
	return nil
}

func (m *Orders) List(_ context.Context, status models.OrderStatus) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.items {
		if status == "" || o.Status == status {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Orders) Find(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.items[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	return &o, nil
}

func (m *Orders) Update(_ context.Context, id primitive.ObjectID, from models.OrderStatus, u services.OrderUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.items[id]
	if !ok || o.Status != from || m.Stale {
		m.Stale = false
		return false, nil
	}
	if u.Status != nil {
		o.Status = *u.Status
	}
	if u.TrackingID != nil {
		o.TrackingID = *u.TrackingID
	}
	if u.VerifiedAt != nil {
		o.VerifiedAt = u.VerifiedAt
	}
	if u.ConfirmedAt != nil {
		o.ConfirmedAt = u.ConfirmedAt
	}
	m.items[id] = o
	return true, nil
}

func (m *Orders) DeleteIfStatus(_ context.Context, id primitive.ObjectID, status models.OrderStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.items[id]
	if !ok || o.Status != status {
		return false, nil
	}
	delete(m.items, id)
	return true, nil
}

type Files struct {
	mu      sync.Mutex
	uploads map[primitive.ObjectID]models.Upload
	proofs  map[primitive.ObjectID]models.PaymentProof
}

func NewFiles() *Files {
	return &Files{
		uploads: map[primitive.ObjectID]models.Upload{},
		proofs:  map[primitive.ObjectID]models.PaymentProof{},
	}
}

func (m *Files) CreateUpload(_ context.Context, u *models.Upload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = primitive.NewObjectID()
	m.uploads[u.ID] = *u
	return nil
}

func (m *Files) FindUpload(_ context.Context, id primitive.ObjectID) (*models.Upload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.uploads[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	return &u, nil
}

func (m *Files) DeleteUpload(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.uploads, id)
	return nil
}

func (m *Files) CreateProof(_ context.Context, p *models.PaymentProof) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = primitive.NewObjectID()
	m.proofs[p.ID] = *p
	return nil
}

func (m *Files) DeleteProof(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.proofs, id)
	return nil
}

func (m *Files) FindProof(_ context.Context, ref string) (*models.PaymentProof, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.proofs {
		if p.ID.Hex() == ref || p.Filename == ref || p.Path == ref {
			return &p, nil
		}
	}
	return nil, services.ErrNotFound
}

// Uploads is the number of upload records.
func (m *Files) Uploads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.uploads)
}

func (m *Files) Proofs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.proofs)
}

type Users struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]models.User
}

func NewUsers() *Users { return &Users{items: map[primitive.ObjectID]models.User{}} }

func (m *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.items {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, services.ErrNotFound
}

func (m *Users) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.items[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	return &u, nil
}

func (m *Users) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = primitive.NewObjectID()
	m.items[u.ID] = *u
	return nil
}

func (m *Users) UpdatePassword(_ context.Context, id primitive.ObjectID, hash, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.items[id]
	if !ok {
		return services.ErrNotFound
	}
	u.Password, u.Role = hash, role
	m.items[id] = u
	return nil
}


type Contacts struct {
	mu    sync.Mutex
	items []models.Contact
}

func (m *Contacts) Create(_ context.Context, c *models.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = primitive.NewObjectID()
	m.items = append(m.items, *c)
	return nil
}

// List returns contacts newest first.
func (m *Contacts) List(context.Context) ([]models.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.Contact(nil), m.items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Contacts) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.items {
		if c.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return services.ErrNotFound
}

func (m *Orders) OrderTotals(context.Context) (map[models.OrderStatus]int64, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	by := map[models.OrderStatus]int64{}
	var sales float64
	for _, o := range m.items {
		by[o.Status]++
		if o.Status == models.StatusConfirmed {
			sales += o.Total
		}
	}
	return by, sales, nil
}

func (m *Orders) MonthlySales(_ context.Context, since time.Time) ([]models.MonthlySales, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	months := map[string]*models.MonthlySales{}
	for _, o := range m.items {
		if o.Status != models.StatusConfirmed || o.CreatedAt.Before(since) {
			continue
		}
		key := o.CreatedAt.UTC().Format("2006-01")
		ms, ok := months[key]
		if !ok {
			ms = &models.MonthlySales{Month: key}
			months[key] = ms
		}
		ms.Sales += o.Total
		ms.Orders++
	}
	out := make([]models.MonthlySales, 0, len(months))
	for _, ms := range months {
		out = append(out, *ms)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

// Customers mirrors the Mongo aggregation: grouped by lowercased email,
// contact details from the latest order, only confirmed totals spent.
func (m *Orders) Customers(context.Context) ([]models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byEmail := map[string]*models.Customer{}
	for _, o := range m.items {
		email := strings.ToLower(o.Billing.Email)
		if email == "" {
			continue
		}
		c, ok := byEmail[email]
		if !ok {
			c = &models.Customer{Email: email}
			byEmail[email] = c
		}
		c.OrderCount++
		if o.Status == models.StatusConfirmed {
			c.TotalSpent += o.Total
		}
		if !o.CreatedAt.Before(c.LastOrderAt) {
			c.LastOrderAt = o.CreatedAt
			c.Name = o.Billing.FullName()
			c.Phone = o.Billing.Phone
			c.City = o.Billing.City
		}
	}
	out := make([]models.Customer, 0, len(byEmail))
	for _, c := range byEmail {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastOrderAt.After(out[j].LastOrderAt) })
	return out, nil
}
