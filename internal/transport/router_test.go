package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"farmart/internal/domain"
	"farmart/internal/middleware"
	"farmart/internal/pagination"
	"farmart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testJWTSecret = "transport-test-secret"

type mockUserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Email]; exists {
		return domain.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, exists := m.users[strings.ToLower(email)]
	if !exists {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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
	m.mu.Lock()
	defer m.mu.Unlock()
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

func (m *mockUserRepository) List(ctx context.Context, filter domain.UserFilter, page pagination.Params) ([]*domain.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.User
	for _, u := range m.users {
		if filter.Role == nil || u.Role == *filter.Role {
			out = append(out, u)
		}
	}
	return out, len(out), nil
}

func (m *mockUserRepository) ListFarmers(ctx context.Context, location string, page pagination.Params) ([]*domain.User, int, error) {
	role := domain.RoleFarmer
	return m.List(ctx, domain.UserFilter{Role: &role}, page)
}

func (m *mockUserRepository) Stats(ctx context.Context, since time.Time) (*domain.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &domain.UserStats{TotalUsers: len(m.users)}, nil
}

type nopNotifier struct{}

func (nopNotifier) Welcome(*domain.User)                                    {}
func (nopNotifier) OrderPlaced(*domain.Order, *domain.User, []*domain.User) {}

// stubCatalog answers every call with the configured animal or error
type stubCatalog struct {
	animal *domain.Animal
	err    error
	filter domain.AnimalFilter
	files  []string
}

func (s *stubCatalog) Create(ctx context.Context, actor domain.Actor, in service.AnimalInput) (*domain.Animal, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Animal{ID: uuid.New(), Name: in.Name, Type: in.Type, FarmerID: actor.UserID, IsAvailable: true}, nil
}

func (s *stubCatalog) Get(ctx context.Context, id uuid.UUID) (*domain.Animal, error) {
	return s.animal, s.err
}

func (s *stubCatalog) List(ctx context.Context, filter domain.AnimalFilter, page pagination.Params) (pagination.Page[*domain.Animal], error) {
	s.filter = filter
	return pagination.NewPage([]*domain.Animal{}, page, 0), s.err
}

func (s *stubCatalog) ListMine(ctx context.Context, actor domain.Actor, page pagination.Params) (pagination.Page[*domain.Animal], error) {
	return pagination.NewPage([]*domain.Animal{}, page, 0), s.err
}

func (s *stubCatalog) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, update domain.AnimalUpdate) (*domain.Animal, error) {
	return s.animal, s.err
}

func (s *stubCatalog) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	return s.err
}

func (s *stubCatalog) UploadImages(ctx context.Context, actor domain.Actor, id uuid.UUID, files []service.ImageUpload) (*domain.Animal, error) {
	if s.err != nil {
		return nil, s.err
	}
	animal := &domain.Animal{ID: id}
	for _, f := range files {
		s.files = append(s.files, f.Filename)
		animal.Images = append(animal.Images, "https://img.test/"+f.Filename)
	}
	return animal, nil
}

type stubCart struct {
	err      error
	quantity int
}

func (s *stubCart) cart(actor domain.Actor) (*domain.Cart, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Cart{ID: uuid.New(), UserID: actor.UserID, Items: []domain.CartItem{}}, nil
}

func (s *stubCart) Get(ctx context.Context, actor domain.Actor) (*domain.Cart, error) {
	return s.cart(actor)
}

func (s *stubCart) AddItem(ctx context.Context, actor domain.Actor, animalID uuid.UUID, quantity int) (*domain.Cart, error) {
	s.quantity = quantity
	return s.cart(actor)
}

func (s *stubCart) UpdateItem(ctx context.Context, actor domain.Actor, itemID uuid.UUID, quantity int) (*domain.Cart, error) {
	s.quantity = quantity
	return s.cart(actor)
}

func (s *stubCart) RemoveItem(ctx context.Context, actor domain.Actor, itemID uuid.UUID) (*domain.Cart, error) {
	return s.cart(actor)
}

func (s *stubCart) Clear(ctx context.Context, actor domain.Actor) (*domain.Cart, error) {
	return s.cart(actor)
}

type stubOrders struct {
	err     error
	details domain.CheckoutDetails
	status  string
}

func (s *stubOrders) order(actor domain.Actor, status domain.OrderStatus) (*domain.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Order{ID: uuid.New(), CustomerID: actor.UserID, Status: status, Items: []domain.OrderItem{}}, nil
}

func (s *stubOrders) Create(ctx context.Context, actor domain.Actor, details domain.CheckoutDetails) (*domain.Order, error) {
	s.details = details
	return s.order(actor, domain.OrderPending)
}

func (s *stubOrders) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Order, error) {
	return s.order(actor, domain.OrderPending)
}

func (s *stubOrders) ListMine(ctx context.Context, actor domain.Actor, page pagination.Params) (pagination.Page[*domain.Order], error) {
	return pagination.NewPage[*domain.Order](nil, page, 0), s.err
}

func (s *stubOrders) ListForFarmer(ctx context.Context, actor domain.Actor, page pagination.Params) (pagination.Page[*domain.Order], error) {
	return pagination.NewPage[*domain.Order](nil, page, 0), s.err
}

func (s *stubOrders) UpdateStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, status string) (*domain.Order, error) {
	s.status = status
	return s.order(actor, domain.OrderStatus(status))
}

type testAPI struct {
	router  http.Handler
	users   service.UserService
	repo    *mockUserRepository
	catalog *stubCatalog
	cart    *stubCart
	orders  *stubOrders
}

func newTestAPI() *testAPI {
	logger := zap.NewNop()
	repo := newMockUserRepository()
	users := service.NewUserService(repo, nopNotifier{}, testJWTSecret, time.Hour)
	api := &testAPI{
		users:   users,
		repo:    repo,
		catalog: &stubCatalog{},
		cart:    &stubCart{},
		orders:  &stubOrders{},
	}

	routes := Routes{
		Auth:      middleware.AuthMiddleware(users, logger),
		RateLimit: func(next http.Handler) http.Handler { return next },
		RequireRole: func(roles ...domain.Role) func(http.Handler) http.Handler {
			return middleware.RequireRole(roles, logger)
		},
	}

	r := chi.NewRouter()
	NewUserHandler(users, logger).RegisterRoutes(r, routes)
	NewAnimalHandler(api.catalog, logger).RegisterRoutes(r, routes)
	NewCartHandler(api.cart, logger).RegisterRoutes(r, routes)
	NewOrderHandler(api.orders, logger).RegisterRoutes(r, routes)
	api.router = r
	return api
}

// register creates an account through the API and returns a bearer token for it
func (a *testAPI) register(t *testing.T, role domain.Role) (string, *domain.User) {
	t.Helper()
	email := uuid.NewString()[:8] + "@farm.test"
	w := a.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Email:     email,
		Password:  "Secret123",
		FirstName: "Test",
		LastName:  "User",
		Role:      role.String(),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	token, user, err := a.users.Login(context.Background(), email, "Secret123")
	require.NoError(t, err)
	return token, user
}

func (a *testAPI) admin(t *testing.T) string {
	t.Helper()
	_, user := a.register(t, domain.RoleCustomer)
	user.Role = domain.RoleAdmin
	token, _, err := a.users.Login(context.Background(), user.Email, "Secret123")
	require.NoError(t, err)
	return token
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}
