package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/olehtrofimiuk/MechMapOnline/internal/domain"
)

func TestIsDefaultFill(t *testing.T) {
	assert.True(t, domain.IsDefaultFill(domain.DefaultHexColor))
	assert.True(t, domain.IsDefaultFill(""), "an empty color means the cell carries no paint")
	assert.False(t, domain.IsDefaultFill("blue"))
	assert.False(t, domain.IsDefaultFill("Lightgray"), "colors are case-sensitive")
}
