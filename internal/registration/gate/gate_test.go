package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"startingline/internal/registration/models"
	"startingline/internal/registration/store"
	id "startingline/pkg/domain"
	dErrors "startingline/pkg/domain-errors"
	"startingline/pkg/platform/sentinel"
	"startingline/pkg/platform/tx"
)

func intPtr(n int) *int { return &n }

type failingStore struct {
	err error
}

func (f failingStore) IncrementParticipants(context.Context, id.DistanceID) (*models.Distance, error) {
	return nil, f.err
}

func (f failingStore) FindMerchandise(context.Context, id.MerchandiseID) (*models.MerchandiseItem, error) {
	return nil, f.err
}

func (f failingStore) DecrementStock(context.Context, id.MerchandiseID, int) (*models.MerchandiseItem, error) {
	return nil, f.err
}

func TestCapacityReserve(t *testing.T) {
	ctx := context.Background()

	t.Run("claims places up to the limit", func(t *testing.T) {
		s := store.NewInMemory()
		d := &models.Distance{ID: id.NewDistanceID(), Name: "21km", EntryLimit: intPtr(2)}
		require.NoError(t, s.SaveDistance(ctx, d))
		gate := NewCapacity(s)

		first, err := gate.Reserve(ctx, d)
		require.NoError(t, err)
		assert.Equal(t, 1, first.CurrentParticipants)
		assert.False(t, first.IsFull)

		second, err := gate.Reserve(ctx, d)
		require.NoError(t, err)
		assert.Equal(t, 2, second.CurrentParticipants)
		assert.True(t, second.IsFull)

		_, err = gate.Reserve(ctx, d)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCapacityExceeded))
		assert.Equal(t, "21km is sold out", dErrors.MessageOf(err))
	})

	t.Run("unlimited distance always grants", func(t *testing.T) {
		s := store.NewInMemory()
		d := &models.Distance{ID: id.NewDistanceID(), Name: "Fun run", EntryLimit: intPtr(0)}
		require.NoError(t, s.SaveDistance(ctx, d))
		gate := NewCapacity(s)

		for range 50 {
			_, err := gate.Reserve(ctx, d)
			require.NoError(t, err)
		}
		got, err := s.FindDistance(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, 50, got.CurrentParticipants)
		assert.False(t, got.IsFull)
	})

	t.Run("full snapshot short-circuits", func(t *testing.T) {
		d := &models.Distance{ID: id.NewDistanceID(), Name: "42km", EntryLimit: intPtr(1), CurrentParticipants: 1, IsFull: true}
		gate := NewCapacity(failingStore{err: errors.New("store must not be called")})

		_, err := gate.Reserve(ctx, d)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCapacityExceeded))
	})

	t.Run("store failures are internal", func(t *testing.T) {
		d := &models.Distance{ID: id.NewDistanceID(), Name: "42km"}
		gate := NewCapacity(failingStore{err: errors.New("connection reset")})

		_, err := gate.Reserve(ctx, d)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})

	t.Run("vanished distance is not found", func(t *testing.T) {
		d := &models.Distance{ID: id.NewDistanceID(), Name: "42km"}
		gate := NewCapacity(failingStore{err: sentinel.ErrNotFound})

		_, err := gate.Reserve(ctx, d)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
		assert.False(t, dErrors.HasCode(err, dErrors.CodeCapacityExceeded))
		assert.Equal(t, "distance 42km not found", dErrors.MessageOf(err))
	})

	t.Run("rollback returns the place", func(t *testing.T) {
		s := store.NewInMemory()
		d := &models.Distance{ID: id.NewDistanceID(), Name: "10km", EntryLimit: intPtr(1)}
		require.NoError(t, s.SaveDistance(ctx, d))
		gate := NewCapacity(s)

		err := tx.NewMemoryManager().RunInTx(ctx, func(ctx context.Context) error {
			if _, err := gate.Reserve(ctx, d); err != nil {
				return err
			}
			return errors.New("later step failed")
		})
		require.Error(t, err)

		got, err := s.FindDistance(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.CurrentParticipants)
		assert.False(t, got.IsFull)
	})
}

func TestStock(t *testing.T) {
	ctx := context.Background()
	newItem := func(t *testing.T, stock *int) (*store.InMemoryStore, *models.MerchandiseItem) {
		s := store.NewInMemory()
		item := &models.MerchandiseItem{ID: id.NewMerchandiseID(), Name: "Cap", CurrentStock: stock}
		require.NoError(t, s.SaveMerchandise(ctx, item))
		return s, item
	}

	t.Run("check does not reserve", func(t *testing.T) {
		s, item := newItem(t, intPtr(3))
		require.NoError(t, NewStock(s).Check(ctx, item, 3))

		got, err := s.FindMerchandise(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, *got.CurrentStock)
	})

	t.Run("check reports what is left", func(t *testing.T) {
		s, item := newItem(t, intPtr(2))
		err := NewStock(s).Check(ctx, item, 3)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeStockInsufficient))
		assert.Equal(t, "not enough Cap in stock (2 left)", dErrors.MessageOf(err))
	})

	t.Run("unknown stock is not found", func(t *testing.T) {
		s, item := newItem(t, nil)
		err := NewStock(s).Check(ctx, item, 1)
		assert.Equal(t, "Cap not found", dErrors.MessageOf(err))

		_, err = NewStock(s).Reserve(ctx, item, 1)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeStockInsufficient))
	})

	t.Run("missing item is not found", func(t *testing.T) {
		item := &models.MerchandiseItem{ID: id.NewMerchandiseID(), Name: "Buff"}
		err := NewStock(store.NewInMemory()).Check(ctx, item, 1)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeStockInsufficient))
		assert.Equal(t, "Buff not found", dErrors.MessageOf(err))
	})

	t.Run("reserve decrements and never goes negative", func(t *testing.T) {
		s, item := newItem(t, intPtr(3))
		gate := NewStock(s)

		updated, err := gate.Reserve(ctx, item, 2)
		require.NoError(t, err)
		assert.Equal(t, 1, *updated.CurrentStock)

		_, err = gate.Reserve(ctx, item, 2)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeStockInsufficient))

		got, err := s.FindMerchandise(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, *got.CurrentStock)
	})

	t.Run("reserve rejects non-positive quantity", func(t *testing.T) {
		s, item := newItem(t, intPtr(3))
		_, err := NewStock(s).Reserve(ctx, item, 0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
