package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	var _ Registry = (*registry)(nil)
}

func TestRegistryAccessors(t *testing.T) {
	reg := NewRegistry(Options{})

	assert.Nil(t, reg.Engine())
	assert.Nil(t, reg.BestPractices())
	assert.Nil(t, reg.Scheduler())
	assert.Nil(t, reg.VectorStore())
	assert.Nil(t, reg.Embedder())
	assert.Nil(t, reg.QueryLog())
}

func TestRegistryClose_Empty(t *testing.T) {
	reg := NewRegistry(Options{})
	require.NoError(t, reg.Close())
}
