package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributeRepository_FindOrCreate(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewAttributeRepository(testDB)

	attr, err := repo.FindOrCreate("color", "Color")
	require.NoError(t, err)
	again, err := repo.FindOrCreate("color", "Ignored")
	require.NoError(t, err)
	assert.Equal(t, attr.ID, again.ID)
	assert.Equal(t, "Color", again.Name)

	value, err := repo.FindOrCreateValue(attr.ID, "red", "Red")
	require.NoError(t, err)
	sameValue, err := repo.FindOrCreateValue(attr.ID, "red", "Red")
	require.NoError(t, err)
	assert.Equal(t, value.ID, sameValue.ID)

	values, err := repo.FindValuesByIDs([]uint{value.ID})
	require.NoError(t, err)
	require.Len(t, values, 1)
	require.NotNil(t, values[0].Attribute)
	assert.Equal(t, "color", values[0].Attribute.Slug)
}

func TestAttributeRepository_FindFilterable(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewAttributeRepository(testDB)

	createAttribute(t, testDB, "power", true)
	createAttribute(t, testDB, "coating", false)
	createAttribute(t, testDB, "color", true)

	attrs, err := repo.FindFilterable()
	require.NoError(t, err)
	require.Len(t, attrs, 2)
	assert.Equal(t, "color", attrs[0].Slug)
	assert.Equal(t, "power", attrs[1].Slug)

	bySlug, err := repo.FindBySlugs([]string{"coating", "missing"})
	require.NoError(t, err)
	assert.Len(t, bySlug, 1)
}
