package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	assert.Equal(t, "Chest pain in 45-year-old male", Text("  <b>Chest pain</b> in 45-year-old male<script>alert(1)</script> "))
	assert.Equal(t, "Crohn's disease & fever", Text("Crohn's disease & fever"))
}

func TestOptional(t *testing.T) {
	blank := "   "
	assert.Nil(t, Optional(nil))
	assert.Nil(t, Optional(&blank))

	v := " <i>Cardiology</i> "
	got := Optional(&v)
	if assert.NotNil(t, got) {
		assert.Equal(t, "Cardiology", *got)
	}
}
