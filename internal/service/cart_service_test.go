package service

import (
	"context"
	"math"
	"testing"
	"time"

	"farmart/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cartFixture struct {
	service CartService
	animals *mockAnimalRepository
	carts   *mockCartRepository
}

func newCartFixture() *cartFixture {
	animals := newMockAnimalRepository()
	carts := newMockCartRepository(animals)
	return &cartFixture{
		service: NewCartService(carts, animals),
		animals: animals,
		carts:   carts,
	}
}

func (f *cartFixture) addAnimal(farmerID uuid.UUID, price float64) *domain.Animal {
	animal := &domain.Animal{
		ID:          uuid.New(),
		Name:        "Animal " + uuid.NewString()[:4],
		Type:        domain.AnimalGoat,
		Price:       price,
		IsAvailable: true,
		FarmerID:    farmerID,
		CreatedAt:   time.Now(),
	}
	f.animals.animals[animal.ID] = animal
	return animal
}

// Feature: farmart, Property 4: Adding the same animal repeatedly merges into one line
func TestProperty_AddingSameAnimalMerges(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("one line whose quantity is the sum of all additions", prop.ForAll(
		func(quantities []int) bool {
			f := newCartFixture()
			customer := customerActor()
			animal := f.addAnimal(uuid.New(), 10)

			sum := 0
			for _, q := range quantities {
				if _, err := f.service.AddItem(context.Background(), customer, animal.ID, q); err != nil {
					return false
				}
				sum += q
			}

			cart, err := f.service.Get(context.Background(), customer)
			if err != nil {
				return false
			}
			return len(cart.Items) == 1 && cart.Items[0].Quantity == sum
		},
		gen.SliceOfN(5, gen.IntRange(1, 10)).SuchThat(func(qs []int) bool { return len(qs) > 0 }),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestCartService_AddItemCheckOrder(t *testing.T) {
	f := newCartFixture()
	ctx := context.Background()
	customer := customerActor()

	_, err := f.service.AddItem(ctx, customer, uuid.New(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity, "quantity is validated before any lookup")

	_, err = f.service.AddItem(ctx, customer, uuid.New(), 1)
	assert.ErrorIs(t, err, domain.ErrAnimalNotFound)

	sold := f.addAnimal(customer.UserID, 10)
	sold.IsAvailable = false
	_, err = f.service.AddItem(ctx, customer, sold.ID, 1)
	assert.ErrorIs(t, err, domain.ErrAnimalUnavailable, "unavailable is reported before self-purchase")

	own := f.addAnimal(customer.UserID, 10)
	_, err = f.service.AddItem(ctx, customer, own.ID, 1)
	assert.ErrorIs(t, err, domain.ErrSelfPurchase)
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))

	other := f.addAnimal(uuid.New(), 10)
	_, err = f.service.AddItem(ctx, customer, other.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestCartService_QuantityIsCapped(t *testing.T) {
	f := newCartFixture()
	ctx := context.Background()
	customer := customerActor()
	animal := f.addAnimal(uuid.New(), 1_000_000)

	_, err := f.service.AddItem(ctx, customer, animal.ID, math.MaxInt)
	assert.ErrorIs(t, err, domain.ErrQuantityTooLarge)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	cart, err := f.service.AddItem(ctx, customer, animal.ID, 600)
	require.NoError(t, err)
	itemID := cart.Items[0].ID

	_, err = f.service.AddItem(ctx, customer, animal.ID, 401)
	assert.ErrorIs(t, err, domain.ErrQuantityTooLarge, "merged quantity is capped")

	cart, err = f.service.AddItem(ctx, customer, animal.ID, 400)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxQuantity, cart.Items[0].Quantity)

	_, err = f.service.UpdateItem(ctx, customer, itemID, domain.MaxQuantity+1)
	assert.ErrorIs(t, err, domain.ErrQuantityTooLarge)

	cart, err = f.service.Get(ctx, customer)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxQuantity, cart.Items[0].Quantity)
}

func TestCartService_CustomerOnly(t *testing.T) {
	f := newCartFixture()

	_, err := f.service.Get(context.Background(), farmerActor())
	assert.ErrorIs(t, err, domain.ErrCustomerOnly)
	_, err = f.service.Clear(context.Background(), farmerActor())
	assert.ErrorIs(t, err, domain.ErrCustomerOnly)
}

func TestCartService_TotalsFollowCurrentPrices(t *testing.T) {
	f := newCartFixture()
	ctx := context.Background()
	customer := customerActor()
	a := f.addAnimal(uuid.New(), 100)
	b := f.addAnimal(uuid.New(), 50)

	_, err := f.service.AddItem(ctx, customer, a.ID, 2)
	require.NoError(t, err)
	cart, err := f.service.AddItem(ctx, customer, b.ID, 1)
	require.NoError(t, err)
	assert.InDelta(t, 250.0, cart.TotalAmount, 0.001)

	a.Price = 120
	cart, err = f.service.Get(ctx, customer)
	require.NoError(t, err)
	assert.InDelta(t, 290.0, cart.TotalAmount, 0.001)
}

func TestCartService_ItemOwnership(t *testing.T) {
	f := newCartFixture()
	ctx := context.Background()
	owner := customerActor()
	intruder := customerActor()
	animal := f.addAnimal(uuid.New(), 10)

	cart, err := f.service.AddItem(ctx, owner, animal.ID, 1)
	require.NoError(t, err)
	itemID := cart.Items[0].ID

	_, err = f.service.UpdateItem(ctx, intruder, itemID, 3)
	assert.ErrorIs(t, err, domain.ErrNotCartOwner)
	_, err = f.service.RemoveItem(ctx, intruder, itemID)
	assert.ErrorIs(t, err, domain.ErrNotCartOwner)

	_, err = f.service.UpdateItem(ctx, owner, uuid.New(), 3)
	assert.ErrorIs(t, err, domain.ErrCartItemNotFound)

	_, err = f.service.UpdateItem(ctx, owner, itemID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	cart, err = f.service.UpdateItem(ctx, owner, itemID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, cart.Items[0].Quantity)

	cart, err = f.service.RemoveItem(ctx, owner, itemID)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestCartService_ClearIsIdempotent(t *testing.T) {
	f := newCartFixture()
	ctx := context.Background()
	customer := customerActor()

	cart, err := f.service.Clear(ctx, customer)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())

	_, err = f.service.AddItem(ctx, customer, f.addAnimal(uuid.New(), 5).ID, 1)
	require.NoError(t, err)

	cleared, err := f.service.Clear(ctx, customer)
	require.NoError(t, err)
	assert.True(t, cleared.IsEmpty())
	assert.Equal(t, cart.ID, cleared.ID)
}
