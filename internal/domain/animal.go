package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AnimalType is the closed set of livestock kinds
type AnimalType string

const (
	AnimalCattle  AnimalType = "cattle"
	AnimalSheep   AnimalType = "sheep"
	AnimalGoat    AnimalType = "goat"
	AnimalPig     AnimalType = "pig"
	AnimalChicken AnimalType = "chicken"
	AnimalDuck    AnimalType = "duck"
	AnimalTurkey  AnimalType = "turkey"
)

// AnimalTypes lists every supported animal type
var AnimalTypes = []AnimalType{
	AnimalCattle, AnimalSheep, AnimalGoat, AnimalPig, AnimalChicken, AnimalDuck, AnimalTurkey,
}

// ParseAnimalType converts a raw string into an AnimalType
func ParseAnimalType(s string) (AnimalType, bool) {
	for _, t := range AnimalTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Animal represents a livestock listing owned by a farmer
type Animal struct {
	ID                uuid.UUID      `json:"id"`
	Name              string         `json:"name"`
	Type              AnimalType     `json:"animal_type"`
	Breed             string         `json:"breed"`
	Age               int            `json:"age"`
	Weight            float64        `json:"weight"`
	Price             float64        `json:"price"`
	Description       string         `json:"description"`
	Images            []string       `json:"images"`
	IsAvailable       bool           `json:"is_available"`
	HealthStatus      string         `json:"health_status"`
	VaccinationStatus string         `json:"vaccination_status"`
	FarmerID          uuid.UUID      `json:"farmer_id"`
	Farmer            *FarmerSummary `json:"farmer,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// OwnedBy reports whether the given user listed the animal
func (a *Animal) OwnedBy(userID uuid.UUID) bool {
	return a.FarmerID == userID
}

// AnimalFilter is the public catalog query.
// Nil bounds are not applied; bounds are inclusive.
type AnimalFilter struct {
	Type      *AnimalType
	Breed     string
	Search    string
	MinAge    *int
	MaxAge    *int
	MinWeight *float64
	MaxWeight *float64
	MinPrice  *float64
	MaxPrice  *float64
}

// AnimalUpdate carries a partial update; nil fields are left untouched
type AnimalUpdate struct {
	Name              *string
	Breed             *string
	Age               *int
	Weight            *float64
	Price             *float64
	Description       *string
	HealthStatus      *string
	VaccinationStatus *string
	IsAvailable       *bool
}

// Apply copies the set fields onto the animal
func (u AnimalUpdate) Apply(a *Animal) {
	if u.Name != nil {
		a.Name = *u.Name
	}
	if u.Breed != nil {
		a.Breed = *u.Breed
	}
	if u.Age != nil {
		a.Age = *u.Age
	}
	if u.Weight != nil {
		a.Weight = *u.Weight
	}
	if u.Price != nil {
		a.Price = *u.Price
	}
	if u.Description != nil {
		a.Description = *u.Description
	}
	if u.HealthStatus != nil {
		a.HealthStatus = *u.HealthStatus
	}
	if u.VaccinationStatus != nil {
		a.VaccinationStatus = *u.VaccinationStatus
	}
	if u.IsAvailable != nil {
		a.IsAvailable = *u.IsAvailable
	}
}

const (
	MaxAnimalNameLength        = 100
	MaxAnimalBreedLength       = 100
	MaxAnimalDescriptionLength = 1000
	MinAnimalAge               = 1
	MaxAnimalAge               = 300
	MaxAnimalWeight            = 10000
	MaxAnimalPrice             = 1000000
)

// Validate checks the listing against the catalog limits.
// Age is in months and weight in kilograms.
func (a *Animal) Validate() error {
	switch {
	case strings.TrimSpace(a.Name) == "" || len(a.Name) > MaxAnimalNameLength:
		return Validation("name is required and must be at most %d characters", MaxAnimalNameLength)
	case strings.TrimSpace(a.Breed) == "" || len(a.Breed) > MaxAnimalBreedLength:
		return Validation("breed is required and must be at most %d characters", MaxAnimalBreedLength)
	case len(a.Description) > MaxAnimalDescriptionLength:
		return Validation("description must be at most %d characters", MaxAnimalDescriptionLength)
	case a.Age < MinAnimalAge || a.Age > MaxAnimalAge:
		return Validation("age must be between %d and %d months", MinAnimalAge, MaxAnimalAge)
	case a.Weight <= 0 || a.Weight > MaxAnimalWeight:
		return Validation("weight must be greater than 0 and at most %d kg", MaxAnimalWeight)
	case a.Price <= 0 || a.Price > MaxAnimalPrice:
		return Validation("price must be greater than 0 and at most %d", MaxAnimalPrice)
	}
	if _, ok := ParseAnimalType(string(a.Type)); !ok {
		return Validation("invalid animal type %q", a.Type)
	}
	return nil
}
