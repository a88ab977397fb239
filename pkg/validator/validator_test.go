package validator

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type submitForm struct {
	Title        string `json:"title" binding:"required,max=10"`
	PrivacyLevel string `json:"privacy_level" binding:"omitempty,privacy_level"`
}

func TestFormatValidationErrorUsesJSONNames(t *testing.T) {
	Setup()

	err := binding.Validator.ValidateStruct(&submitForm{PrivacyLevel: "everyone"})
	require.Error(t, err)

	msg := FormatValidationError(err)
	assert.Contains(t, msg, "title is a required field")
	assert.Contains(t, msg, "privacy_level must be one of public, university_only, private")
}

func TestCustomTagAcceptsKnownValues(t *testing.T) {
	Setup()

	err := binding.Validator.ValidateStruct(&submitForm{Title: "Chest pain", PrivacyLevel: "university_only"})
	assert.NoError(t, err)
}
