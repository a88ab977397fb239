package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageQueryNormalize(t *testing.T) {
	q := PageQuery{}
	assert.Equal(t, 0, q.Normalize())
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 10, q.Limit)

	q = PageQuery{Page: 3, Limit: 500}
	assert.Equal(t, 100, q.Normalize())
	assert.Equal(t, 50, q.Limit)
}

func TestNewPaginationMeta(t *testing.T) {
	assert.Equal(t, 3, NewPaginationMeta(1, 10, 21).TotalPages)
	assert.Equal(t, 2, NewPaginationMeta(1, 10, 20).TotalPages)
	assert.Equal(t, 0, NewPaginationMeta(1, 10, 0).TotalPages)
}
