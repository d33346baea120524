package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/commerce-core/internal/application/inventory"
	"github.com/jhoicas/commerce-core/internal/domain"
)

func TestLocationUseCase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uc := inventory.NewLocationUseCase(f.deps)

	_, err := uc.Create(ctx, "store-1", "  ", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	loc, err := uc.Create(ctx, "store-1", "Bodega norte", "Cra 7 # 1-1")
	require.NoError(t, err)
	_, err = uc.Create(ctx, "store-2", "Otra", "")
	require.NoError(t, err)

	got, err := uc.Get(ctx, loc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bodega norte", got.Name)
	assert.True(t, got.Active)

	list, err := uc.ListActive(ctx, "store-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, loc.ID, list[0].ID)

	_, err = uc.Get(ctx, "no-existe")
	assert.ErrorIs(t, err, domain.ErrLocationNotFound)
}
