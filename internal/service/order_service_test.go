package service

import (
	"context"
	"testing"

	"farmart/internal/domain"
	"farmart/internal/pagination"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type orderFixture struct {
	carts    CartService
	animals  *mockAnimalRepository
	users    *mockUserRepository
	notifier *recordingNotifier
	orders   OrderService
}

func newOrderFixture() *orderFixture {
	cf := newCartFixture()
	users := newMockUserRepository()
	notifier := &recordingNotifier{}
	return &orderFixture{
		carts:    cf.service,
		animals:  cf.animals,
		users:    users,
		notifier: notifier,
		orders:   NewOrderService(newMockOrderRepository(cf.carts), users, notifier, zap.NewNop()),
	}
}

func (f *orderFixture) addAnimal(farmerID uuid.UUID, price float64) *domain.Animal {
	return (&cartFixture{animals: f.animals}).addAnimal(farmerID, price)
}

func (f *orderFixture) user(role domain.Role) domain.Actor {
	u := &domain.User{ID: uuid.New(), Email: uuid.NewString() + "@farmart.test", Role: role, IsActive: true}
	f.users.users[u.Email] = u
	return domain.Actor{UserID: u.ID, Role: role}
}

var testDetails = domain.CheckoutDetails{
	ShippingAddress: domain.ShippingAddress{FirstName: "Jane", City: "Nairobi"},
}

func TestOrderService_CreateScenario(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	farmer := f.user(domain.RoleFarmer)
	customer := f.user(domain.RoleCustomer)
	a := f.addAnimal(farmer.UserID, 100)
	b := f.addAnimal(farmer.UserID, 50)

	_, err := f.carts.AddItem(ctx, customer, a.ID, 2)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, customer, b.ID, 1)
	require.NoError(t, err)

	order, err := f.orders.Create(ctx, customer, testDetails)
	require.NoError(t, err)

	assert.InDelta(t, 250.0, order.TotalAmount, 0.001)
	assert.Len(t, order.Items, 2)
	assert.False(t, a.IsAvailable)
	assert.False(t, b.IsAvailable)

	cart, err := f.carts.Get(ctx, customer)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())

	require.Len(t, f.notifier.orders, 1)
	require.Len(t, f.notifier.farmers[0], 1)
	assert.Equal(t, farmer.UserID, f.notifier.farmers[0][0].ID)
}

func TestOrderService_FarmersNotifiedWhenCustomerLookupFails(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	farmer := f.user(domain.RoleFarmer)
	customer := f.user(domain.RoleCustomer)

	_, err := f.carts.AddItem(ctx, customer, f.addAnimal(farmer.UserID, 80).ID, 1)
	require.NoError(t, err)

	for email, u := range f.users.users {
		if u.ID == customer.UserID {
			delete(f.users.users, email)
		}
	}

	_, err = f.orders.Create(ctx, customer, testDetails)
	require.NoError(t, err)

	require.Len(t, f.notifier.orders, 1)
	assert.Nil(t, f.notifier.customers[0])
	require.Len(t, f.notifier.farmers[0], 1)
	assert.Equal(t, farmer.UserID, f.notifier.farmers[0][0].ID)
}

func TestOrderService_CreateRequiresCustomerAndItems(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	_, err := f.orders.Create(ctx, f.user(domain.RoleFarmer), testDetails)
	assert.ErrorIs(t, err, domain.ErrCustomerOnly)

	_, err = f.orders.Create(ctx, f.user(domain.RoleCustomer), testDetails)
	assert.ErrorIs(t, err, domain.ErrCartEmpty)
	assert.Empty(t, f.notifier.orders)
}

func TestOrderService_GetAccess(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	farmer := f.user(domain.RoleFarmer)
	customer := f.user(domain.RoleCustomer)
	_, err := f.carts.AddItem(ctx, customer, f.addAnimal(farmer.UserID, 10).ID, 1)
	require.NoError(t, err)
	order, err := f.orders.Create(ctx, customer, testDetails)
	require.NoError(t, err)

	for _, actor := range []domain.Actor{customer, farmer, {UserID: uuid.New(), Role: domain.RoleAdmin}} {
		_, err := f.orders.Get(ctx, actor, order.ID)
		assert.NoError(t, err)
	}
	for _, actor := range []domain.Actor{f.user(domain.RoleCustomer), f.user(domain.RoleFarmer)} {
		_, err := f.orders.Get(ctx, actor, order.ID)
		assert.ErrorIs(t, err, domain.ErrOrderForbidden)
	}

	mine, err := f.orders.ListMine(ctx, customer, pagination.New(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, mine.Meta.Total)

	incoming, err := f.orders.ListForFarmer(ctx, farmer, pagination.New(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, incoming.Meta.Total)

	_, err = f.orders.ListForFarmer(ctx, customer, pagination.New(1, 10))
	assert.ErrorIs(t, err, domain.ErrFarmerOnly)
}

func TestOrderService_UpdateStatusValidation(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	farmer := f.user(domain.RoleFarmer)
	customer := f.user(domain.RoleCustomer)
	_, err := f.carts.AddItem(ctx, customer, f.addAnimal(farmer.UserID, 10).ID, 1)
	require.NoError(t, err)
	order, err := f.orders.Create(ctx, customer, testDetails)
	require.NoError(t, err)

	_, err = f.orders.UpdateStatus(ctx, customer, order.ID, "confirmed")
	assert.ErrorIs(t, err, domain.ErrFarmerOnly)

	_, err = f.orders.UpdateStatus(ctx, farmer, order.ID, "shipped")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	updated, err := f.orders.UpdateStatus(ctx, farmer, order.ID, " CONFIRMED ")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderConfirmed, updated.Status)
}

// Feature: farmart, Property 5: Order totals equal the sum of quantity x price at checkout
func TestProperty_OrderTotalMatchesLines(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("total is computed once from current prices", prop.ForAll(
		func(prices []float64, quantities []int) bool {
			f := newOrderFixture()
			ctx := context.Background()
			farmer := f.user(domain.RoleFarmer)
			customer := f.user(domain.RoleCustomer)

			n := len(prices)
			if len(quantities) < n {
				n = len(quantities)
			}
			if n == 0 {
				return true
			}

			expected := 0.0
			var animals []*domain.Animal
			for i := 0; i < n; i++ {
				price := float64(int(prices[i]*100)) / 100
				a := f.addAnimal(farmer.UserID, price)
				animals = append(animals, a)
				if _, err := f.carts.AddItem(ctx, customer, a.ID, quantities[i]); err != nil {
					return false
				}
				expected += domain.LineSubtotal(quantities[i], price)
			}

			order, err := f.orders.Create(ctx, customer, testDetails)
			if err != nil {
				return false
			}

			for _, a := range animals {
				a.Price *= 2
			}
			stored, err := f.orders.Get(ctx, customer, order.ID)
			if err != nil {
				return false
			}
			diff := stored.TotalAmount - expected
			return diff < 0.01 && diff > -0.01
		},
		gen.SliceOfN(4, gen.Float64Range(1, 5000)),
		gen.SliceOfN(4, gen.IntRange(1, 5)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestOrderService_NotifiesAfterCommitOnly(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	customer := f.user(domain.RoleCustomer)
	animal := f.addAnimal(uuid.New(), 10)
	_, err := f.carts.AddItem(ctx, customer, animal.ID, 1)
	require.NoError(t, err)
	animal.IsAvailable = false

	_, err = f.orders.Create(ctx, customer, testDetails)
	assert.ErrorIs(t, err, domain.ErrAnimalUnavailable)
	assert.Empty(t, f.notifier.orders)
}

func TestOrderService_RejectReleasesAnimals(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	farmer := f.user(domain.RoleFarmer)
	customer := f.user(domain.RoleCustomer)
	animal := f.addAnimal(farmer.UserID, 75)
	_, err := f.carts.AddItem(ctx, customer, animal.ID, 1)
	require.NoError(t, err)
	order, err := f.orders.Create(ctx, customer, testDetails)
	require.NoError(t, err)
	require.False(t, animal.IsAvailable)

	rejected, err := f.orders.UpdateStatus(ctx, farmer, order.ID, "rejected")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderRejected, rejected.Status)
	assert.True(t, animal.IsAvailable)

	_, err = f.orders.UpdateStatus(ctx, farmer, order.ID, "confirmed")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}
