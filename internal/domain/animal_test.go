package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validAnimal() *Animal {
	return &Animal{
		Name:   "Daisy",
		Type:   AnimalCattle,
		Breed:  "Friesian",
		Age:    24,
		Weight: 450,
		Price:  1200,
	}
}

func TestAnimalValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *Animal)
		valid  bool
	}{
		{"valid", func(a *Animal) {}, true},
		{"blank name", func(a *Animal) { a.Name = "  " }, false},
		{"long name", func(a *Animal) { a.Name = strings.Repeat("x", MaxAnimalNameLength+1) }, false},
		{"missing breed", func(a *Animal) { a.Breed = "" }, false},
		{"long description", func(a *Animal) { a.Description = strings.Repeat("x", MaxAnimalDescriptionLength+1) }, false},
		{"age zero", func(a *Animal) { a.Age = 0 }, false},
		{"age max", func(a *Animal) { a.Age = MaxAnimalAge }, true},
		{"age over", func(a *Animal) { a.Age = MaxAnimalAge + 1 }, false},
		{"weight zero", func(a *Animal) { a.Weight = 0 }, false},
		{"weight max", func(a *Animal) { a.Weight = MaxAnimalWeight }, true},
		{"price negative", func(a *Animal) { a.Price = -1 }, false},
		{"price over", func(a *Animal) { a.Price = MaxAnimalPrice + 0.01 }, false},
		{"unknown type", func(a *Animal) { a.Type = "llama" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validAnimal()
			tt.mutate(a)
			err := a.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, KindValidation, KindOf(err))
			}
		})
	}
}

func TestAnimalUpdateApply(t *testing.T) {
	a := validAnimal()
	price := 900.0
	available := false
	AnimalUpdate{Price: &price, IsAvailable: &available}.Apply(a)

	assert.Equal(t, 900.0, a.Price)
	assert.False(t, a.IsAvailable)
	assert.Equal(t, "Daisy", a.Name)
}

func TestErrorWithMessageKeepsIdentity(t *testing.T) {
	err := ErrAnimalNotFound.WithMessage("animal %d missing", 7)
	assert.ErrorIs(t, err, ErrAnimalNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "animal 7 missing", err.Error())
	assert.Equal(t, KindInternal, KindOf(assert.AnError))
}
