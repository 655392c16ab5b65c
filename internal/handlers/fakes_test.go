package handlers_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/01moynul/refuel-storefront/internal/events"
	"github.com/01moynul/refuel-storefront/internal/models"
	"github.com/01moynul/refuel-storefront/internal/payment"
	"github.com/01moynul/refuel-storefront/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- users ---

type memUsers struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.User
}

func newMemUsers() *memUsers {
	return &memUsers{byID: make(map[primitive.ObjectID]*models.User)}
}

func cloneUser(u *models.User) *models.User {
	out := *u
	out.Cart = u.Cart.Clone()
	out.Wishlist = u.Wishlist.Clone()
	return &out
}

func (m *memUsers) Insert(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.Cart == nil {
		u.Cart = models.Cart{}
	}
	if u.Wishlist == nil {
		u.Wishlist = models.Wishlist{}
	}
	u.CreatedAt = time.Now()
	m.byID[u.ID] = cloneUser(u)
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(u), nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) GetByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[primitive.ObjectID]*models.User)
	for _, id := range ids {
		if u, ok := m.byID[id]; ok {
			out[id] = cloneUser(u)
		}
	}
	return out, nil
}

func (m *memUsers) matching(search string) []*models.User {
	var out []*models.User
	term := strings.ToLower(search)
	for _, u := range m.byID {
		if term == "" || strings.Contains(strings.ToLower(u.Name), term) || strings.Contains(strings.ToLower(u.Email), term) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() > out[j].ID.Hex() })
	return out
}

func (m *memUsers) List(_ context.Context, search string, page repository.Page) ([]models.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.matching(search)
	out := []models.User{}
	for _, u := range paginate(len(all), page) {
		out = append(out, *cloneUser(all[u]))
	}
	return out, int64(len(all)), nil
}

func (m *memUsers) MatchingIDs(_ context.Context, search string) ([]primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []primitive.ObjectID
	for _, u := range m.matching(search) {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

func (m *memUsers) mutate(id primitive.ObjectID, fn func(u *models.User)) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	fn(u)
	return cloneUser(u), nil
}

func (m *memUsers) Update(_ context.Context, id primitive.ObjectID, upd models.UserUpdate) (*models.User, error) {
	return m.mutate(id, func(u *models.User) {
		if upd.Name != nil {
			u.Name = *upd.Name
		}
		if upd.Number != nil {
			u.Number = *upd.Number
		}
		if upd.Email != nil {
			u.Email = *upd.Email
		}
		if upd.Blocked != nil {
			u.Blocked = *upd.Blocked
		}
		if upd.IsAdmin != nil {
			u.IsAdmin = *upd.IsAdmin
		}
	})
}

func (m *memUsers) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memUsers) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.byID)), nil
}

func (m *memUsers) SetCart(_ context.Context, id primitive.ObjectID, cart models.Cart) (*models.User, error) {
	return m.mutate(id, func(u *models.User) { u.Cart = cart.Clone() })
}

func (m *memUsers) AddCartItem(_ context.Context, id, productID primitive.ObjectID, qty int) (*models.User, error) {
	return m.mutate(id, func(u *models.User) { u.Cart = u.Cart.Add(productID, qty) })
}

func (m *memUsers) RemoveCartItem(_ context.Context, id, productID primitive.ObjectID) (*models.User, error) {
	return m.mutate(id, func(u *models.User) { u.Cart = u.Cart.Remove(productID) })
}

func (m *memUsers) SetWishlist(_ context.Context, id primitive.ObjectID, w models.Wishlist) (*models.User, error) {
	return m.mutate(id, func(u *models.User) { u.Wishlist = w.Clone() })
}

func (m *memUsers) AddWishlistItem(_ context.Context, id, productID primitive.ObjectID) (*models.User, error) {
	return m.mutate(id, func(u *models.User) { u.Wishlist, _ = u.Wishlist.Add(productID) })
}

func (m *memUsers) RemoveWishlistItem(_ context.Context, id, productID primitive.ObjectID) (*models.User, error) {
	return m.mutate(id, func(u *models.User) { u.Wishlist = u.Wishlist.Remove(productID) })
}

// --- products ---

type memProducts struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.Product
}

func newMemProducts() *memProducts {
	return &memProducts{byID: make(map[primitive.ObjectID]*models.Product)}
}

func (m *memProducts) Insert(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.Reslug()
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memProducts) GetByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProducts) GetByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[primitive.ObjectID]*models.Product)
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (m *memProducts) Update(_ context.Context, p *models.Product) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[p.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	p.Reslug()
	cp := *p
	m.byID[p.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memProducts) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memProducts) List(_ context.Context, f models.ProductFilter, page repository.Page) ([]models.Product, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []models.Product
	for _, p := range m.byID {
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
			continue
		}
		if f.Category != "" && f.Category != "All" && p.Category != f.Category {
			continue
		}
		if f.MinPrice != nil && p.Price < *f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && p.Price > *f.MaxPrice {
			continue
		}
		all = append(all, *p)
	}

	sort.Slice(all, func(i, j int) bool {
		switch f.Sort {
		case models.SortPriceAsc:
			return all[i].Price < all[j].Price
		case models.SortPriceDesc:
			return all[i].Price > all[j].Price
		case models.SortNameAsc:
			return all[i].Name < all[j].Name
		case models.SortNameDesc:
			return all[i].Name > all[j].Name
		default:
			return all[i].ID.Hex() > all[j].ID.Hex()
		}
	})

	out := []models.Product{}
	for _, i := range paginate(len(all), page) {
		out = append(out, all[i])
	}
	return out, int64(len(all)), nil
}

func (m *memProducts) Categories(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	out := []string{}
	for _, p := range m.byID {
		if p.Category != "" && !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memProducts) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.byID)), nil
}

// --- orders ---

type memOrders struct {
	mu   sync.Mutex
	list []*models.Order
}

func (m *memOrders) Insert(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	if o.Date.IsZero() {
		o.Date = time.Now()
	}
	cp := *o
	cp.Items = append([]models.OrderItem(nil), o.Items...)
	m.list = append(m.list, &cp)
	return nil
}

func (m *memOrders) find(id primitive.ObjectID) *models.Order {
	for _, o := range m.list {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (m *memOrders) GetByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.find(id)
	if o == nil {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) matches(o *models.Order, f models.OrderFilter) bool {
	if f.UserID != nil && o.UserID != *f.UserID {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.Searched {
		hit := f.OrderID != nil && o.ID == *f.OrderID
		for _, uid := range f.UserIDs {
			if o.UserID == uid {
				hit = true
			}
		}
		return hit
	}
	return true
}

func (m *memOrders) List(_ context.Context, f models.OrderFilter, page repository.Page) ([]models.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []models.Order
	for _, o := range m.list {
		if m.matches(o, f) {
			all = append(all, *o)
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Date.After(all[j].Date) })

	out := []models.Order{}
	for _, i := range paginate(len(all), page) {
		out = append(out, all[i])
	}
	return out, int64(len(all)), nil
}

func (m *memOrders) Recent(ctx context.Context, n int64) ([]models.Order, error) {
	out, _, err := m.List(ctx, models.OrderFilter{}, repository.Page{Number: 1, Limit: n})
	return out, err
}

func (m *memOrders) Update(_ context.Context, id primitive.ObjectID, upd models.OrderUpdate) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.find(id)
	if o == nil {
		return nil, repository.ErrNotFound
	}
	if upd.Status != nil {
		o.Status = *upd.Status
	}
	if upd.ShippingAddress != nil {
		o.ShippingAddress = *upd.ShippingAddress
	}
	if upd.PaymentMethod != nil {
		o.PaymentMethod = *upd.PaymentMethod
	}
	if upd.PaymentDetails != nil {
		o.PaymentDetails = upd.PaymentDetails
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.list)), nil
}

func (m *memOrders) TotalAmounts(context.Context) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []float64
	for _, o := range m.list {
		out = append(out, o.TotalAmount)
	}
	return out, nil
}

func paginate(n int, page repository.Page) []int {
	start := int((page.Number - 1) * page.Limit)
	if start >= n {
		return nil
	}
	end := start + int(page.Limit)
	if end > n {
		end = n
	}
	idx := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		idx = append(idx, i)
	}
	return idx
}

// --- collaborators ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// fakeGateway verifies with the real HMAC check and answers order creation locally.
type fakeGateway struct {
	*payment.Gateway
	created []float64
	err     error
}

func newFakeGateway(secret string) *fakeGateway {
	return &fakeGateway{Gateway: payment.NewGateway(gatewayKeyID, secret)}
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount float64, currency, receipt string) (map[string]interface{}, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.created = append(g.created, amount)
	return map[string]interface{}{
		"id":       "order_test",
		"amount":   payment.ToSubunits(amount),
		"currency": currency,
		"receipt":  receipt,
	}, nil
}
