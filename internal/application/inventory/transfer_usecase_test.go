package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/commerce-core/internal/application/inventory"
	"github.com/jhoicas/commerce-core/internal/domain"
	"github.com/jhoicas/commerce-core/internal/domain/entity"
	"github.com/jhoicas/commerce-core/internal/domain/repository"
)

func TestTransferUseCase_ShipYReceiveCreaDestino(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := f.location(t, "Origen")
	dst := f.location(t, "Destino")
	source := f.stock(t, "V1", src, 10, false, 0)
	uc := inventory.NewTransferUseCase(f.deps)

	tr, err := uc.Create(ctx, src, dst, "rebalanceo")
	require.NoError(t, err)
	_, err = uc.AddItem(ctx, tr.ID, "V1", 4)
	require.NoError(t, err)

	shipped, err := uc.Ship(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferInTransit, shipped.Status)
	assert.Equal(t, 6, f.reload(t, source.ID).QuantityOnHand)

	received, err := uc.Receive(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferReceived, received.Status)

	dest, err := f.store.Repositories().StockItems.GetByVariantLocation(ctx, "V1", dst, repository.StockItemMovements)
	require.NoError(t, err)
	assert.Equal(t, 4, dest.QuantityOnHand)
	assert.Equal(t, dest.LedgerBalance(), dest.QuantityOnHand)

	byRef, err := f.store.Repositories().Movements.ListByReference(ctx, tr.ID)
	require.NoError(t, err)
	assert.Len(t, byRef, 2)

	_, err = uc.Cancel(ctx, tr.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestTransferUseCase_CancelEnTransitoRepone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := f.location(t, "Origen")
	dst := f.location(t, "Destino")
	source := f.stock(t, "V1", src, 10, false, 0)
	uc := inventory.NewTransferUseCase(f.deps)

	tr, err := uc.Create(ctx, src, dst, "")
	require.NoError(t, err)
	_, err = uc.AddItem(ctx, tr.ID, "V1", 4)
	require.NoError(t, err)
	_, err = uc.Ship(ctx, tr.ID)
	require.NoError(t, err)

	canceled, err := uc.Cancel(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferCanceled, canceled.Status)

	report, err := inventory.NewStockUseCase(f.deps).VerifyLedger(ctx, source.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, report.QuantityOnHand)
	assert.Equal(t, -4, report.ByType[entity.MovementTransfer])
	assert.Equal(t, 4, report.ByType[entity.MovementCorrection])
}

func TestTransferUseCase_ShipFallidoNoDescuentaNada(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := f.location(t, "Origen")
	dst := f.location(t, "Destino")
	v1 := f.stock(t, "V1", src, 10, false, 0)
	f.stock(t, "V2", src, 1, false, 0)
	uc := inventory.NewTransferUseCase(f.deps)

	tr, err := uc.Create(ctx, src, dst, "")
	require.NoError(t, err)
	_, err = uc.AddItem(ctx, tr.ID, "V1", 4)
	require.NoError(t, err)
	_, err = uc.AddItem(ctx, tr.ID, "V2", 5)
	require.NoError(t, err)

	_, err = uc.Ship(ctx, tr.ID)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	got, err := uc.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferDraft, got.Status)
	assert.Equal(t, 10, f.reload(t, v1.ID).QuantityOnHand)

	_, err = uc.RemoveItem(ctx, tr.ID, "V2")
	require.NoError(t, err)
	_, err = uc.Ship(ctx, tr.ID)
	require.NoError(t, err)

	list, err := uc.ListByLocation(ctx, dst, entity.TransferInTransit, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTransferUseCase_Validaciones(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := f.location(t, "Origen")
	uc := inventory.NewTransferUseCase(f.deps)

	_, err := uc.Create(ctx, src, src, "")
	assert.ErrorIs(t, err, domain.ErrSameLocation)
	_, err = uc.Create(ctx, src, "nope", "")
	assert.ErrorIs(t, err, domain.ErrLocationNotFound)
	_, err = uc.Ship(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrTransferNotFound)
}
