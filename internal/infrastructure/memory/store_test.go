package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/commerce-core/internal/domain"
	"github.com/jhoicas/commerce-core/internal/domain/entity"
	"github.com/jhoicas/commerce-core/internal/domain/repository"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedItem(t *testing.T, s *Store, onHand int) *entity.StockItem {
	t.Helper()
	item, err := entity.NewStockItem("V1", "L1", testNow)
	require.NoError(t, err)
	_, err = item.AdjustStock(onHand, entity.MovementReceived, decimal.NewFromInt(5), "", "po-1", testNow)
	require.NoError(t, err)
	require.NoError(t, s.Repositories().StockItems.Create(context.Background(), item))
	return item
}

func TestStore_CreateYLedger(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	item := seedItem(t, s, 10)
	assert.Equal(t, int64(1), item.Version)
	assert.Empty(t, item.NewMovements())

	got, err := s.Repositories().StockItems.GetByID(ctx, item.ID, repository.StockItemMovements)
	require.NoError(t, err)
	assert.Equal(t, 10, got.QuantityOnHand)
	require.Len(t, got.Movements, 1)
	assert.Equal(t, 10, got.LedgerBalance())

	dup, err := entity.NewStockItem("V1", "L1", testNow)
	require.NoError(t, err)
	err = s.Repositories().StockItems.Create(ctx, dup)
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestStore_RollbackSiFnFalla(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	item := seedItem(t, s, 10)

	boom := errors.New("boom")
	err := s.Run(ctx, func(repos repository.Repositories) error {
		it, err := repos.StockItems.GetForUpdate(ctx, item.ID, repository.StockItemUnits)
		require.NoError(t, err)
		_, err = it.Reserve(4, "O1", "L1", testNow)
		require.NoError(t, err)
		require.NoError(t, repos.StockItems.Save(ctx, it))

		seen, err := repos.StockItems.GetByID(ctx, item.ID, repository.StockItemRoot)
		require.NoError(t, err)
		assert.Equal(t, 4, seen.QuantityReserved, "la unidad ve sus propias escrituras")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	after, err := s.Repositories().StockItems.GetByID(ctx, item.ID, repository.StockItemUnits)
	require.NoError(t, err)
	assert.Zero(t, after.QuantityReserved)
	assert.Empty(t, after.Units)
	assert.Equal(t, int64(1), after.Version)
}

func TestStore_ConflictoDeVersion(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	item := seedItem(t, s, 10)

	err := s.Run(ctx, func(repos repository.Repositories) error {
		it, err := repos.StockItems.GetForUpdate(ctx, item.ID, repository.StockItemUnits)
		require.NoError(t, err)

		// otra unidad confirma entre la lectura y el commit
		other, err := s.Repositories().StockItems.GetByID(ctx, item.ID, repository.StockItemUnits)
		require.NoError(t, err)
		_, err = other.AdjustStock(1, entity.MovementCorrection, decimal.Zero, "", "", testNow)
		require.NoError(t, err)
		require.NoError(t, s.Repositories().StockItems.Save(ctx, other))

		_, err = it.Reserve(1, "O1", "L1", testNow)
		require.NoError(t, err)
		return repos.StockItems.Save(ctx, it)
	})
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	stale := item.Clone()
	stale.Version = 1
	err = s.Repositories().StockItems.Save(ctx, stale)
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
}

func TestStore_NoEncontradoEsDistintoDeConflicto(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_, err := s.Repositories().StockItems.GetByID(ctx, "nope", repository.StockItemRoot)
	assert.ErrorIs(t, err, domain.ErrStockItemNotFound)
	assert.NotErrorIs(t, err, domain.ErrConcurrencyConflict)

	_, err = s.Repositories().Orders.GetByID(ctx, "nope", repository.OrderFull)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestStore_ListReservedByOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	item := seedItem(t, s, 10)

	require.NoError(t, s.Run(ctx, func(repos repository.Repositories) error {
		it, err := repos.StockItems.GetForUpdate(ctx, item.ID, repository.StockItemUnits)
		if err != nil {
			return err
		}
		if _, err := it.Reserve(3, "O1", "L1", testNow); err != nil {
			return err
		}
		return repos.StockItems.Save(ctx, it)
	}))

	items, err := s.Repositories().StockItems.ListReservedByOrder(ctx, "O1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].ReservedFor("O1"))

	items, err = s.Repositories().StockItems.ListReservedByOrder(ctx, "O2")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestStore_MovimientosFiltradosYPaginados(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	item := seedItem(t, s, 10)

	for i := 1; i <= 3; i++ {
		it, err := s.Repositories().StockItems.GetByID(ctx, item.ID, repository.StockItemUnits)
		require.NoError(t, err)
		_, err = it.AdjustStock(-1, entity.MovementLoss, decimal.Zero, "merma", "aud-1", testNow.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
		require.NoError(t, s.Repositories().StockItems.Save(ctx, it))
	}

	all, err := s.Repositories().Movements.ListByStockItem(ctx, item.ID, nil, nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	from := testNow.Add(90 * time.Minute)
	later, err := s.Repositories().Movements.ListByStockItem(ctx, item.ID, &from, nil, 1, 0)
	require.NoError(t, err)
	require.Len(t, later, 1)
	assert.Equal(t, -1, later[0].QuantityDelta)

	byRef, err := s.Repositories().Movements.ListByReference(ctx, "aud-1")
	require.NoError(t, err)
	assert.Len(t, byRef, 3)
}

func TestStore_ContextoCancelado(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewStore()
	item := seedItem(t, s, 10)

	err := s.Run(ctx, func(repos repository.Repositories) error {
		it, err := repos.StockItems.GetForUpdate(ctx, item.ID, repository.StockItemUnits)
		if err != nil {
			return err
		}
		if _, err := it.Reserve(2, "O1", "L1", testNow); err != nil {
			return err
		}
		if err := repos.StockItems.Save(ctx, it); err != nil {
			return err
		}
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	after, err := s.Repositories().StockItems.GetByID(context.Background(), item.ID, repository.StockItemRoot)
	require.NoError(t, err)
	assert.Zero(t, after.QuantityReserved, "nada se confirma tras la cancelación")
}
