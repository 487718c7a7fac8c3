package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"farmart/internal/domain"
	"farmart/internal/pagination"
	"farmart/internal/repository"
	"farmart/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AnimalInput carries a new listing
type AnimalInput struct {
	Name              string
	Type              domain.AnimalType
	Breed             string
	Age               int
	Weight            float64
	Price             float64
	Description       string
	HealthStatus      string
	VaccinationStatus string
}

// ImageUpload is one file to attach to a listing
type ImageUpload struct {
	Filename string
	Body     io.Reader
}

const (
	defaultHealthStatus      = "healthy"
	defaultVaccinationStatus = "unknown"
)

// AnimalService defines the interface for catalog business logic
type AnimalService interface {
	Create(ctx context.Context, actor domain.Actor, in AnimalInput) (*domain.Animal, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Animal, error)
	List(ctx context.Context, filter domain.AnimalFilter, page pagination.Params) (pagination.Page[*domain.Animal], error)
	ListMine(ctx context.Context, actor domain.Actor, page pagination.Params) (pagination.Page[*domain.Animal], error)
	Update(ctx context.Context, actor domain.Actor, id uuid.UUID, update domain.AnimalUpdate) (*domain.Animal, error)
	Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	UploadImages(ctx context.Context, actor domain.Actor, id uuid.UUID, files []ImageUpload) (*domain.Animal, error)
}

type animalService struct {
	animalRepo repository.AnimalRepository
	images     storage.ImageStore
	logger     *zap.Logger
	now        func() time.Time
}

// NewAnimalService creates a new instance of AnimalService
func NewAnimalService(animalRepo repository.AnimalRepository, images storage.ImageStore, logger *zap.Logger) AnimalService {
	return &animalService{
		animalRepo: animalRepo,
		images:     images,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *animalService) Create(ctx context.Context, actor domain.Actor, in AnimalInput) (*domain.Animal, error) {
	if !actor.IsFarmer() {
		return nil, domain.ErrFarmerOnly
	}

	now := s.now().UTC()
	animal := &domain.Animal{
		ID:                uuid.New(),
		Name:              strings.TrimSpace(in.Name),
		Type:              in.Type,
		Breed:             strings.TrimSpace(in.Breed),
		Age:               in.Age,
		Weight:            in.Weight,
		Price:             in.Price,
		Description:       strings.TrimSpace(in.Description),
		Images:            []string{},
		IsAvailable:       true,
		HealthStatus:      orDefault(in.HealthStatus, defaultHealthStatus),
		VaccinationStatus: orDefault(in.VaccinationStatus, defaultVaccinationStatus),
		FarmerID:          actor.UserID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := animal.Validate(); err != nil {
		return nil, err
	}

	if err := s.animalRepo.Create(ctx, animal); err != nil {
		return nil, fmt.Errorf("failed to create animal: %w", err)
	}

	return s.animalRepo.FindByID(ctx, animal.ID)
}

func (s *animalService) Get(ctx context.Context, id uuid.UUID) (*domain.Animal, error) {
	animal, err := s.animalRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get animal: %w", err)
	}
	return animal, nil
}

// List returns available animals; inverted bounds are rejected
func (s *animalService) List(ctx context.Context, filter domain.AnimalFilter, page pagination.Params) (pagination.Page[*domain.Animal], error) {
	if err := validateFilter(filter); err != nil {
		return pagination.Page[*domain.Animal]{}, err
	}

	animals, total, err := s.animalRepo.List(ctx, filter, page)
	if err != nil {
		return pagination.Page[*domain.Animal]{}, fmt.Errorf("failed to list animals: %w", err)
	}
	return pagination.NewPage(animals, page, total), nil
}

func validateFilter(f domain.AnimalFilter) error {
	if f.MinAge != nil && f.MaxAge != nil && *f.MinAge > *f.MaxAge {
		return domain.Validation("min_age must not exceed max_age")
	}
	if f.MinWeight != nil && f.MaxWeight != nil && *f.MinWeight > *f.MaxWeight {
		return domain.Validation("min_weight must not exceed max_weight")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return domain.Validation("min_price must not exceed max_price")
	}
	return nil
}

func (s *animalService) ListMine(ctx context.Context, actor domain.Actor, page pagination.Params) (pagination.Page[*domain.Animal], error) {
	if !actor.IsFarmer() {
		return pagination.Page[*domain.Animal]{}, domain.ErrFarmerOnly
	}

	animals, total, err := s.animalRepo.ListByFarmer(ctx, actor.UserID, page)
	if err != nil {
		return pagination.Page[*domain.Animal]{}, fmt.Errorf("failed to list farmer animals: %w", err)
	}
	return pagination.NewPage(animals, page, total), nil
}

func (s *animalService) owned(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Animal, error) {
	animal, err := s.animalRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get animal: %w", err)
	}
	if !animal.OwnedBy(actor.UserID) {
		return nil, domain.ErrNotAnimalOwner
	}
	return animal, nil
}

func (s *animalService) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, update domain.AnimalUpdate) (*domain.Animal, error) {
	animal, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	update.Apply(animal)
	if err := animal.Validate(); err != nil {
		return nil, err
	}

	if err := s.animalRepo.Update(ctx, animal); err != nil {
		return nil, fmt.Errorf("failed to update animal: %w", err)
	}
	return animal, nil
}

// Delete removes the listing, then its stored images on a best-effort basis
func (s *animalService) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	animal, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.animalRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete animal: %w", err)
	}

	for _, url := range animal.Images {
		if err := s.images.Delete(ctx, url); err != nil && !errors.Is(err, domain.ErrImagesNotSupported) {
			s.logger.Warn("Failed to delete animal image",
				zap.String("animal_id", id.String()),
				zap.String("url", url),
				zap.Error(err),
			)
		}
	}
	return nil
}

// UploadImages stores the files under the animal's folder and appends their URLs
func (s *animalService) UploadImages(ctx context.Context, actor domain.Actor, id uuid.UUID, files []ImageUpload) (*domain.Animal, error) {
	if len(files) == 0 {
		return nil, domain.Validation("no images provided")
	}

	animal, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	folder := "farmart/animals/" + id.String()
	urls := make([]string, 0, len(files))
	for _, f := range files {
		url, err := s.images.Upload(ctx, folder, f.Filename, f.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to upload image %s: %w", f.Filename, err)
		}
		urls = append(urls, url)
	}

	if animal.Images, err = s.animalRepo.AppendImages(ctx, id, urls); err != nil {
		return nil, fmt.Errorf("failed to save animal images: %w", err)
	}
	return animal, nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
