package validation

import (
	"testing"

	"github.com/IMINABO1/Vault/server/apperrors"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name  string `json:"name" validate:"not_blank" message:"Contact name is required."`
	Phone string `json:"phone" validate:"not_blank"`
	Pin   string `json:"pin" validate:"omitempty,pin"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name     string
		input    sample
		expected string
	}{
		{"valid", sample{Name: "Ada", Phone: "555"}, ""},
		{"blank name uses message tag", sample{Name: "   ", Phone: "555"}, "Contact name is required."},
		{"blank phone uses json name", sample{Name: "Ada", Phone: "\t"}, "phone is required."},
		{"short pin", sample{Name: "Ada", Phone: "555", Pin: "123"}, "pin must be 4 digits."},
		{"alpha pin", sample{Name: "Ada", Phone: "555", Pin: "12a4"}, "pin must be 4 digits."},
		{"good pin", sample{Name: "Ada", Phone: "555", Pin: "0042"}, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Struct(&tc.input)
			if tc.expected == "" {
				assert.Nil(t, err)
				return
			}

			assert.True(t, apperrors.Is(err, apperrors.ValidationError))
			assert.EqualError(t, err, tc.expected)
		})
	}
}
