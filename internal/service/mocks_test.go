package service

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"farmart/internal/domain"
	"farmart/internal/pagination"

	"github.com/google/uuid"
)

type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Email]; exists {
		return domain.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, exists := m.users[strings.ToLower(email)]
	if !exists {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	if _, err := m.FindByID(ctx, user.ID); err != nil {
		return err
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	user, err := m.FindByID(ctx, id)
	if err != nil {
		return err
	}
	user.PasswordHash = passwordHash
	return nil
}

func (m *mockUserRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	user, err := m.FindByID(ctx, id)
	if err != nil {
		return err
	}
	user.IsActive = active
	return nil
}

func (m *mockUserRepository) sorted(keep func(*domain.User) bool) []*domain.User {
	var out []*domain.User
	for _, u := range m.users {
		if keep(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

func (m *mockUserRepository) List(ctx context.Context, filter domain.UserFilter, page pagination.Params) ([]*domain.User, int, error) {
	all := m.sorted(func(u *domain.User) bool {
		return filter.Role == nil || u.Role == *filter.Role
	})
	return window(all, page), len(all), nil
}

func (m *mockUserRepository) ListFarmers(ctx context.Context, location string, page pagination.Params) ([]*domain.User, int, error) {
	all := m.sorted(func(u *domain.User) bool {
		return u.IsFarmer() && u.IsActive && strings.Contains(u.FarmLocation, location)
	})
	return window(all, page), len(all), nil
}

func (m *mockUserRepository) Stats(ctx context.Context, since time.Time) (*domain.UserStats, error) {
	stats := &domain.UserStats{}
	for _, u := range m.users {
		stats.TotalUsers++
		switch u.Role {
		case domain.RoleFarmer:
			stats.TotalFarmers++
		case domain.RoleCustomer:
			stats.TotalCustomers++
		}
		if u.IsActive {
			stats.ActiveUsers++
		} else {
			stats.InactiveUsers++
		}
		if !u.CreatedAt.Before(since) {
			stats.RecentRegistrations++
		}
	}
	return stats, nil
}

func window[T any](all []T, page pagination.Params) []T {
	start := page.Offset()
	if start >= len(all) {
		return []T{}
	}
	end := start + page.Limit()
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

type mockAnimalRepository struct {
	animals  map[uuid.UUID]*domain.Animal
	reserved map[uuid.UUID]bool
}

func newMockAnimalRepository() *mockAnimalRepository {
	return &mockAnimalRepository{
		animals:  make(map[uuid.UUID]*domain.Animal),
		reserved: make(map[uuid.UUID]bool),
	}
}

func (m *mockAnimalRepository) Create(ctx context.Context, animal *domain.Animal) error {
	m.animals[animal.ID] = animal
	return nil
}

func (m *mockAnimalRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Animal, error) {
	animal, ok := m.animals[id]
	if !ok {
		return nil, domain.ErrAnimalNotFound
	}
	copied := *animal
	copied.Images = append([]string{}, animal.Images...)
	return &copied, nil
}

func (m *mockAnimalRepository) Update(ctx context.Context, animal *domain.Animal) error {
	current, ok := m.animals[animal.ID]
	if !ok {
		return domain.ErrAnimalNotFound
	}
	if animal.IsAvailable && !current.IsAvailable && m.reserved[animal.ID] {
		return domain.ErrAnimalReserved
	}
	m.animals[animal.ID] = animal
	return nil
}

func (m *mockAnimalRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.animals[id]; !ok {
		return domain.ErrAnimalNotFound
	}
	if m.reserved[id] {
		return domain.ErrAnimalReserved
	}
	delete(m.animals, id)
	return nil
}

func (m *mockAnimalRepository) filtered(keep func(*domain.Animal) bool) []*domain.Animal {
	var out []*domain.Animal
	for _, a := range m.animals {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *mockAnimalRepository) List(ctx context.Context, filter domain.AnimalFilter, page pagination.Params) ([]*domain.Animal, int, error) {
	all := m.filtered(func(a *domain.Animal) bool {
		return a.IsAvailable && (filter.Type == nil || a.Type == *filter.Type)
	})
	return window(all, page), len(all), nil
}

func (m *mockAnimalRepository) ListByFarmer(ctx context.Context, farmerID uuid.UUID, page pagination.Params) ([]*domain.Animal, int, error) {
	all := m.filtered(func(a *domain.Animal) bool { return a.FarmerID == farmerID })
	return window(all, page), len(all), nil
}

func (m *mockAnimalRepository) AppendImages(ctx context.Context, id uuid.UUID, urls []string) ([]string, error) {
	animal, ok := m.animals[id]
	if !ok {
		return nil, domain.ErrAnimalNotFound
	}
	animal.Images = append(animal.Images, urls...)
	return append([]string{}, animal.Images...), nil
}

type mockCartRepository struct {
	animals *mockAnimalRepository
	carts   map[uuid.UUID]*domain.Cart
	items   map[uuid.UUID]*domain.CartItem
}

func newMockCartRepository(animals *mockAnimalRepository) *mockCartRepository {
	return &mockCartRepository{
		animals: animals,
		carts:   make(map[uuid.UUID]*domain.Cart),
		items:   make(map[uuid.UUID]*domain.CartItem),
	}
}

func (m *mockCartRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	cart, ok := m.carts[userID]
	if !ok {
		cart = &domain.Cart{ID: uuid.New(), UserID: userID}
		m.carts[userID] = cart
	}

	result := &domain.Cart{ID: cart.ID, UserID: userID, Items: []domain.CartItem{}}
	for _, item := range m.items {
		if item.CartID == cart.ID {
			line := *item
			line.Animal, _ = m.animals.FindByID(ctx, item.AnimalID)
			result.Items = append(result.Items, line)
		}
	}
	sort.Slice(result.Items, func(i, j int) bool { return result.Items[i].ID.String() < result.Items[j].ID.String() })
	result.Recalculate()
	return result, nil
}

func (m *mockCartRepository) AddItem(ctx context.Context, cartID, animalID uuid.UUID, quantity int) (*domain.CartItem, error) {
	for _, item := range m.items {
		if item.CartID == cartID && item.AnimalID == animalID {
			item.Quantity += quantity
			return item, nil
		}
	}
	item := &domain.CartItem{ID: uuid.New(), CartID: cartID, AnimalID: animalID, Quantity: quantity}
	m.items[item.ID] = item
	return item, nil
}

func (m *mockCartRepository) FindItem(ctx context.Context, itemID uuid.UUID) (*domain.CartItem, uuid.UUID, error) {
	item, ok := m.items[itemID]
	if !ok {
		return nil, uuid.Nil, domain.ErrCartItemNotFound
	}
	for userID, cart := range m.carts {
		if cart.ID == item.CartID {
			return item, userID, nil
		}
	}
	return nil, uuid.Nil, domain.ErrCartNotFound
}

func (m *mockCartRepository) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	item, ok := m.items[itemID]
	if !ok {
		return domain.ErrCartItemNotFound
	}
	item.Quantity = quantity
	return nil
}

func (m *mockCartRepository) RemoveItem(ctx context.Context, itemID uuid.UUID) error {
	if _, ok := m.items[itemID]; !ok {
		return domain.ErrCartItemNotFound
	}
	delete(m.items, itemID)
	return nil
}

func (m *mockCartRepository) Clear(ctx context.Context, cartID uuid.UUID) error {
	for id, item := range m.items {
		if item.CartID == cartID {
			delete(m.items, id)
		}
	}
	return nil
}

// mockOrderRepository checks out carts held by a mockCartRepository
type mockOrderRepository struct {
	carts  *mockCartRepository
	orders map[uuid.UUID]*domain.Order
}

func newMockOrderRepository(carts *mockCartRepository) *mockOrderRepository {
	return &mockOrderRepository{carts: carts, orders: make(map[uuid.UUID]*domain.Order)}
}

func (m *mockOrderRepository) CreateFromCart(ctx context.Context, customerID uuid.UUID, details domain.CheckoutDetails, now time.Time) (*domain.Order, error) {
	cart, err := m.carts.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}

	lines := make([]domain.CheckoutLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, domain.CheckoutLine{Animal: item.Animal, Quantity: item.Quantity})
	}

	order, err := domain.NewOrder(customerID, lines, details, now)
	if err != nil {
		return nil, err
	}

	for _, item := range cart.Items {
		m.carts.animals.animals[item.AnimalID].IsAvailable = false
		m.carts.animals.reserved[item.AnimalID] = true
	}
	_ = m.carts.Clear(ctx, cart.ID)
	m.orders[order.ID] = order
	return order, nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (m *mockOrderRepository) list(keep func(*domain.Order) bool, page pagination.Params) ([]*domain.Order, int, error) {
	var all []*domain.Order
	for _, o := range m.orders {
		if keep(o) {
			all = append(all, o)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return window(all, page), len(all), nil
}

func (m *mockOrderRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, page pagination.Params) ([]*domain.Order, int, error) {
	return m.list(func(o *domain.Order) bool { return o.CustomerID == customerID }, page)
}

func (m *mockOrderRepository) ListByFarmer(ctx context.Context, farmerID uuid.UUID, page pagination.Params) ([]*domain.Order, int, error) {
	return m.list(func(o *domain.Order) bool { return o.HasFarmer(farmerID) }, page)
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id, farmerID uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if !order.HasFarmer(farmerID) {
		return nil, domain.ErrOrderForbidden
	}
	if err := domain.ValidateTransition(order.Status, status); err != nil {
		return nil, err
	}
	order.Status = status
	if status == domain.OrderRejected {
		for _, item := range order.ItemsForFarmer(farmerID) {
			if a, ok := m.carts.animals.animals[*item.AnimalID]; ok {
				a.IsAvailable = true
				delete(m.carts.animals.reserved, a.ID)
			}
		}
	}
	return order, nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	welcomed  []*domain.User
	orders    []*domain.Order
	customers []*domain.User
	farmers   [][]*domain.User
}

func (n *recordingNotifier) Welcome(user *domain.User) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomed = append(n.welcomed, user)
}

func (n *recordingNotifier) OrderPlaced(order *domain.Order, customer *domain.User, farmers []*domain.User) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, order)
	n.customers = append(n.customers, customer)
	n.farmers = append(n.farmers, farmers)
}

type fakeImageStore struct {
	uploaded []string
	deleted  []string
}

func (f *fakeImageStore) Upload(ctx context.Context, folder, filename string, body io.Reader) (string, error) {
	url := "https://images.test/" + folder + "/" + filename
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeImageStore) Delete(ctx context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}
