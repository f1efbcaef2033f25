package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/resellr-backend/pkg/db/dbtest"
	"github.com/angelmondragon/resellr-backend/pkg/db/models"
	"github.com/angelmondragon/resellr-backend/pkg/enums"
	"github.com/angelmondragon/resellr-backend/pkg/types"
)

func TestRepositoryFindVariantScopesToProduct(t *testing.T) {
	db := dbtest.Open(t)
	fx := dbtest.SeedCatalog(t, db, 15000)
	repo := NewRepository(db)
	ctx := context.Background()

	variant, err := repo.FindVariant(ctx, fx.Product.ID, fx.Variant.ID)
	require.NoError(t, err)
	require.Equal(t, int64(15000), variant.BasePrice)

	_, err = repo.FindVariant(ctx, uuid.New(), fx.Variant.ID)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestRepositoryListsOnlyActiveEntriesInOrder(t *testing.T) {
	db := dbtest.Open(t)
	fx := dbtest.SeedCatalog(t, db, 15000)
	repo := NewRepository(db)
	ctx := context.Background()

	first := models.SellDefect{
		ID:         uuid.New(),
		CategoryID: fx.CategoryID,
		Key:        "aaa",
		Title:      "Sorted first",
		Delta:      types.Delta{Type: enums.DeltaTypeAbs, Sign: "-", Value: 1},
		IsActive:   true,
		SortOrder:  -1,
	}
	hidden := models.SellDefect{
		ID:         uuid.New(),
		CategoryID: fx.CategoryID,
		Key:        "hidden",
		Title:      "Retired",
		Delta:      types.Delta{Type: enums.DeltaTypeAbs, Sign: "-", Value: 1},
		IsActive:   true,
	}
	dbtest.MustCreate(t, db, &first, &hidden)
	require.NoError(t, db.Model(&models.SellDefect{}).Where("id = ?", hidden.ID).Update("is_active", false).Error)

	defects, err := repo.ListDefects(ctx, fx.CategoryID)
	require.NoError(t, err)
	require.Len(t, defects, 2)
	require.Equal(t, "aaa", defects[0].Key)
	require.Equal(t, "dent", defects[1].Key)
	require.Equal(t, 20.0, defects[1].Delta.Value)

	questions, err := repo.ListQuestions(ctx, fx.CategoryID)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	require.Len(t, questions[0].Options, 2)

	other, err := repo.ListAccessories(ctx, uuid.New())
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestRepositoryFindVariantsByIDs(t *testing.T) {
	db := dbtest.Open(t)
	fx := dbtest.SeedCatalog(t, db, 15000)
	repo := NewRepository(db)

	found, err := repo.FindVariantsByIDs(context.Background(), []uuid.UUID{fx.Variant.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "128GB", found[fx.Variant.ID].Label)

	empty, err := repo.FindProductsByIDs(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}
