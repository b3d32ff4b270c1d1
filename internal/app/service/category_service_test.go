package service

import (
	"testing"

	"github.com/opticplace/opticplace-backend/internal/app/model"
	"github.com/opticplace/opticplace-backend/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryService_DeleteCategory(t *testing.T) {
	testDB := setupTestDB(t)
	cache := newMemoryCache()
	service := NewCategoryService(repository.NewCategoryRepository(testDB), cache)

	used := createCategory(t, testDB, "frames", nil)
	product := createProduct(t, testDB, "frame", used.ID, "100")
	require.NoError(t, testDB.Model(&model.Product{}).Where("id = ?", product.ID).Update("is_active", false).Error)
	empty := createCategory(t, testDB, "empty", nil)

	err := service.DeleteCategory(used.ID)
	assert.ErrorIs(t, err, ErrCategoryInUse)
	assert.ErrorIs(t, err, ErrIntegrity)

	require.NoError(t, service.DeleteCategory(empty.ID))
	assert.Equal(t, int64(1), countRows(t, testDB, &model.Category{}))
	assert.Equal(t, 1, cache.Invalidations())

	assert.ErrorIs(t, service.DeleteCategory(empty.ID), ErrCategoryNotFound)
}

func TestCategoryService_UpdateCategoryParent(t *testing.T) {
	testDB := setupTestDB(t)
	service := NewCategoryService(repository.NewCategoryRepository(testDB), nil)

	root := createCategory(t, testDB, "root", nil)
	child := createCategory(t, testDB, "child", &root.ID)
	grandchild := createCategory(t, testDB, "grandchild", &child.ID)
	other := createCategory(t, testDB, "other", nil)

	assert.ErrorIs(t, service.UpdateCategoryParent(root.ID, &grandchild.ID), ErrCategoryCycle)
	assert.ErrorIs(t, service.UpdateCategoryParent(child.ID, &child.ID), ErrCategoryCycle)

	missing := uint(9999)
	assert.ErrorIs(t, service.UpdateCategoryParent(child.ID, &missing), ErrCategoryNotFound)

	require.NoError(t, service.UpdateCategoryParent(grandchild.ID, &other.ID))
	var moved model.Category
	require.NoError(t, testDB.First(&moved, grandchild.ID).Error)
	require.NotNil(t, moved.ParentID)
	assert.Equal(t, other.ID, *moved.ParentID)

	require.NoError(t, service.UpdateCategoryParent(child.ID, nil))
	var detached model.Category
	require.NoError(t, testDB.First(&detached, child.ID).Error)
	assert.Nil(t, detached.ParentID)
}
