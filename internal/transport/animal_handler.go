package transport

import (
	"net/http"
	"path/filepath"
	"strings"

	"farmart/internal/domain"
	"farmart/internal/middleware"
	"farmart/internal/pagination"
	"farmart/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	maxUploadBytes  = 32 << 20
	maxImagesPerReq = 10
)

var allowedImageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// AnimalRequest is the body of a new listing
type AnimalRequest struct {
	Name              string  `json:"name" validate:"required,max=100"`
	AnimalType        string  `json:"animal_type" validate:"required,animal_type"`
	Breed             string  `json:"breed" validate:"required,max=100"`
	Age               int     `json:"age" validate:"gte=1,lte=300"`
	Weight            float64 `json:"weight" validate:"gt=0,lte=10000"`
	Price             float64 `json:"price" validate:"gt=0,lte=1000000"`
	Description       string  `json:"description" validate:"max=1000"`
	HealthStatus      string  `json:"health_status" validate:"max=50"`
	VaccinationStatus string  `json:"vaccination_status" validate:"max=50"`
}

// AnimalUpdateRequest is a partial listing update
type AnimalUpdateRequest struct {
	Name              *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Breed             *string  `json:"breed" validate:"omitempty,min=1,max=100"`
	Age               *int     `json:"age" validate:"omitempty,gte=1,lte=300"`
	Weight            *float64 `json:"weight" validate:"omitempty,gt=0,lte=10000"`
	Price             *float64 `json:"price" validate:"omitempty,gt=0,lte=1000000"`
	Description       *string  `json:"description" validate:"omitempty,max=1000"`
	HealthStatus      *string  `json:"health_status" validate:"omitempty,max=50"`
	VaccinationStatus *string  `json:"vaccination_status" validate:"omitempty,max=50"`
	IsAvailable       *bool    `json:"is_available"`
}

// AnimalHandler handles HTTP requests for the catalog
type AnimalHandler struct {
	animalService service.AnimalService
	logger        *zap.Logger
}

func NewAnimalHandler(animalService service.AnimalService, logger *zap.Logger) *AnimalHandler {
	return &AnimalHandler{
		animalService: animalService,
		logger:        logger,
	}
}

// RegisterRoutes registers catalog routes
func (h *AnimalHandler) RegisterRoutes(r chi.Router, routes Routes) {
	r.Route("/api/animals", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(routes.Auth)
			r.Get("/my-animals", h.ListMine)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
			r.Post("/{id}/images", h.UploadImages)
		})
	})
}

// List is the public catalog
func (h *AnimalHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := animalFilter(r)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	page, err := h.animalService.List(r.Context(), filter, pagination.FromRequest(r))
	if err != nil {
		h.logger.Error("Failed to list animals", zap.Error(err))
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, pageBody("animals", page))
}

func animalFilter(r *http.Request) (domain.AnimalFilter, error) {
	q := r.URL.Query()
	filter := domain.AnimalFilter{
		Breed:  strings.TrimSpace(q.Get("breed")),
		Search: strings.TrimSpace(q.Get("search")),
	}

	raw := q.Get("animal_type")
	if raw == "" {
		raw = q.Get("type")
	}
	if raw != "" {
		t, ok := domain.ParseAnimalType(strings.ToLower(raw))
		if !ok {
			return filter, domain.Validation("invalid animal type %q", raw)
		}
		filter.Type = &t
	}

	var err error
	if filter.MinAge, err = queryInt(r, "min_age"); err != nil {
		return filter, err
	}
	if filter.MaxAge, err = queryInt(r, "max_age"); err != nil {
		return filter, err
	}
	if filter.MinWeight, err = queryFloat(r, "min_weight"); err != nil {
		return filter, err
	}
	if filter.MaxWeight, err = queryFloat(r, "max_weight"); err != nil {
		return filter, err
	}
	if filter.MinPrice, err = queryFloat(r, "min_price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = queryFloat(r, "max_price"); err != nil {
		return filter, err
	}
	return filter, nil
}

func (h *AnimalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	animal, err := h.animalService.Get(r.Context(), id)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{"animal": animal})
}

// ListMine lists every listing of the calling farmer, sold ones included
func (h *AnimalHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	page, err := h.animalService.ListMine(r.Context(), actorFrom(r), pagination.FromRequest(r))
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, pageBody("animals", page))
}

func (h *AnimalHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)

	var req AnimalRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	animal, err := h.animalService.Create(r.Context(), actor, service.AnimalInput{
		Name:              strings.TrimSpace(req.Name),
		Type:              domain.AnimalType(req.AnimalType),
		Breed:             strings.TrimSpace(req.Breed),
		Age:               req.Age,
		Weight:            req.Weight,
		Price:             req.Price,
		Description:       strings.TrimSpace(req.Description),
		HealthStatus:      req.HealthStatus,
		VaccinationStatus: req.VaccinationStatus,
	})
	if err != nil {
		h.logger.Info("Animal creation failed", zap.String("user_id", actor.UserID.String()), zap.Error(err))
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("Animal created",
		zap.String("animal_id", animal.ID.String()),
		zap.String("user_id", actor.UserID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, map[string]any{
		"message": "Animal created successfully",
		"animal":  animal,
	})
}

func (h *AnimalHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	var req AnimalUpdateRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	actor := actorFrom(r)
	animal, err := h.animalService.Update(r.Context(), actor, id, domain.AnimalUpdate{
		Name:              req.Name,
		Breed:             req.Breed,
		Age:               req.Age,
		Weight:            req.Weight,
		Price:             req.Price,
		Description:       req.Description,
		HealthStatus:      req.HealthStatus,
		VaccinationStatus: req.VaccinationStatus,
		IsAvailable:       req.IsAvailable,
	})
	if err != nil {
		h.logger.Info("Animal update failed",
			zap.String("animal_id", id.String()),
			zap.String("user_id", actor.UserID.String()),
			zap.Error(err),
		)
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{
		"message": "Animal updated successfully",
		"animal":  animal,
	})
}

func (h *AnimalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	actor := actorFrom(r)
	if err := h.animalService.Delete(r.Context(), actor, id); err != nil {
		h.logger.Info("Animal deletion failed",
			zap.String("animal_id", id.String()),
			zap.String("user_id", actor.UserID.String()),
			zap.Error(err),
		)
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("Animal deleted", zap.String("animal_id", id.String()), zap.String("user_id", actor.UserID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, Message{Message: "Animal deleted successfully"})
}

// UploadImages accepts multipart "images" files and appends them to the listing
func (h *AnimalHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["images"]
	if len(headers) == 0 {
		middleware.RespondWithError(w, http.StatusBadRequest, "no images provided")
		return
	}
	if len(headers) > maxImagesPerReq {
		middleware.RespondWithError(w, http.StatusBadRequest, "too many images")
		return
	}

	uploads := make([]service.ImageUpload, 0, len(headers))
	for _, fh := range headers {
		if !allowedImageExtensions[strings.ToLower(filepath.Ext(fh.Filename))] {
			middleware.RespondWithError(w, http.StatusBadRequest, "unsupported image type: "+fh.Filename)
			return
		}
		f, err := fh.Open()
		if err != nil {
			middleware.RespondWithDomainError(w, h.logger, err)
			return
		}
		defer f.Close()
		uploads = append(uploads, service.ImageUpload{Filename: fh.Filename, Body: f})
	}

	actor := actorFrom(r)
	animal, err := h.animalService.UploadImages(r.Context(), actor, id, uploads)
	if err != nil {
		h.logger.Error("Image upload failed",
			zap.String("animal_id", id.String()),
			zap.String("user_id", actor.UserID.String()),
			zap.Error(err),
		)
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{
		"message": "Images uploaded successfully",
		"images":  animal.Images,
		"animal":  animal,
	})
}
