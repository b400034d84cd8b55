package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrder(t *testing.T) {
	t.Run("valid order starts pending reservation", func(t *testing.T) {
		order, err := NewOrder("O-1", "C-1", []OrderLine{
			{ProductID: "P-1", Quantity: 2},
			{ProductID: "P-2", Quantity: 1},
		})
		require.NoError(t, err)
		assert.Equal(t, StatePendingReservation, order.Status)
		assert.Len(t, order.Lines, 2)
	})

	t.Run("empty order is rejected", func(t *testing.T) {
		_, err := NewOrder("O-1", "C-1", nil)
		assert.ErrorIs(t, err, ErrEmptyOrder)
	})

	t.Run("non positive quantity is rejected", func(t *testing.T) {
		_, err := NewOrder("O-1", "C-1", []OrderLine{{ProductID: "P-1", Quantity: 0}})
		assert.ErrorIs(t, err, ErrInvalidQuantity)

		_, err = NewOrder("O-1", "C-1", []OrderLine{{ProductID: "P-1", Quantity: -3}})
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("missing product id is rejected", func(t *testing.T) {
		_, err := NewOrder("O-1", "C-1", []OrderLine{{ProductID: "", Quantity: 1}})
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})
}

func TestComputeTotal(t *testing.T) {
	order, err := NewOrder("O-1", "C-1", []OrderLine{
		{ProductID: "P-1", Quantity: 3, UnitPrice: decimal.RequireFromString("19.99")},
		{ProductID: "P-2", Quantity: 1, UnitPrice: decimal.RequireFromString("0.01")},
	})
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("59.98").Equal(order.ComputeTotal()))
}

func TestMarkConfirmed(t *testing.T) {
	order, err := NewOrder("O-1", "C-1", []OrderLine{
		{ProductID: "P-1", Quantity: 2, UnitPrice: decimal.NewFromInt(10)},
	})
	require.NoError(t, err)

	order.MarkConfirmed()

	assert.Equal(t, StateConfirmed, order.Status)
	assert.True(t, decimal.NewFromInt(20).Equal(order.TotalAmount))
}

func TestMarkFailed(t *testing.T) {
	order, err := NewOrder("O-1", "C-1", []OrderLine{
		{ProductID: "P-1", Quantity: 1},
	})
	require.NoError(t, err)

	order.MarkFailed("insufficient stock")

	assert.Equal(t, StateFailed, order.Status)
	assert.Equal(t, "insufficient stock", order.FailureReason)
}
