package service

import (
	"context"
	"fmt"

	"farmart/internal/domain"
	"farmart/internal/repository"

	"github.com/google/uuid"
)

// CartService defines the interface for cart business logic.
// Every operation returns the cart as it stands afterwards.
type CartService interface {
	Get(ctx context.Context, actor domain.Actor) (*domain.Cart, error)
	AddItem(ctx context.Context, actor domain.Actor, animalID uuid.UUID, quantity int) (*domain.Cart, error)
	UpdateItem(ctx context.Context, actor domain.Actor, itemID uuid.UUID, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, actor domain.Actor, itemID uuid.UUID) (*domain.Cart, error)
	Clear(ctx context.Context, actor domain.Actor) (*domain.Cart, error)
}

type cartService struct {
	cartRepo   repository.CartRepository
	animalRepo repository.AnimalRepository
}

// NewCartService creates a new instance of CartService
func NewCartService(cartRepo repository.CartRepository, animalRepo repository.AnimalRepository) CartService {
	return &cartService{
		cartRepo:   cartRepo,
		animalRepo: animalRepo,
	}
}

func (s *cartService) Get(ctx context.Context, actor domain.Actor) (*domain.Cart, error) {
	if !actor.IsCustomer() {
		return nil, domain.ErrCustomerOnly
	}
	return s.cart(ctx, actor.UserID)
}

func (s *cartService) cart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.cartRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return cart, nil
}

// AddItem validates the quantity, then checks existence, availability and
// self-purchase, and merges the line. The merged quantity is capped too.
func (s *cartService) AddItem(ctx context.Context, actor domain.Actor, animalID uuid.UUID, quantity int) (*domain.Cart, error) {
	if !actor.IsCustomer() {
		return nil, domain.ErrCustomerOnly
	}
	if err := domain.ValidateQuantity(quantity); err != nil {
		return nil, err
	}

	animal, err := s.animalRepo.FindByID(ctx, animalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get animal: %w", err)
	}
	if !animal.IsAvailable {
		return nil, domain.ErrAnimalUnavailable
	}
	if animal.OwnedBy(actor.UserID) {
		return nil, domain.ErrSelfPurchase
	}

	cart, err := s.cart(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if line, ok := cart.ItemFor(animalID); ok && line.Quantity+quantity > domain.MaxQuantity {
		return nil, domain.ErrQuantityTooLarge
	}

	if _, err := s.cartRepo.AddItem(ctx, cart.ID, animalID, quantity); err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}
	return s.cart(ctx, actor.UserID)
}

func (s *cartService) ownedItem(ctx context.Context, actor domain.Actor, itemID uuid.UUID) error {
	if !actor.IsCustomer() {
		return domain.ErrCustomerOnly
	}

	_, ownerID, err := s.cartRepo.FindItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("failed to get cart item: %w", err)
	}
	if ownerID != actor.UserID {
		return domain.ErrNotCartOwner
	}
	return nil
}

func (s *cartService) UpdateItem(ctx context.Context, actor domain.Actor, itemID uuid.UUID, quantity int) (*domain.Cart, error) {
	if err := s.ownedItem(ctx, actor, itemID); err != nil {
		return nil, err
	}
	if err := domain.ValidateQuantity(quantity); err != nil {
		return nil, err
	}

	if err := s.cartRepo.UpdateItemQuantity(ctx, itemID, quantity); err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}
	return s.cart(ctx, actor.UserID)
}

func (s *cartService) RemoveItem(ctx context.Context, actor domain.Actor, itemID uuid.UUID) (*domain.Cart, error) {
	if err := s.ownedItem(ctx, actor, itemID); err != nil {
		return nil, err
	}

	if err := s.cartRepo.RemoveItem(ctx, itemID); err != nil {
		return nil, fmt.Errorf("failed to remove cart item: %w", err)
	}
	return s.cart(ctx, actor.UserID)
}

// Clear empties the caller's cart, creating it first if needed
func (s *cartService) Clear(ctx context.Context, actor domain.Actor) (*domain.Cart, error) {
	if !actor.IsCustomer() {
		return nil, domain.ErrCustomerOnly
	}

	cart, err := s.cart(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return cart, nil
	}

	if err := s.cartRepo.Clear(ctx, cart.ID); err != nil {
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}
	return s.cart(ctx, actor.UserID)
}
