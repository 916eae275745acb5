package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/iou/types"
)

func TestAmountAdd(t *testing.T) {
	got, err := types.Amount(40).Add(60)
	require.NoError(t, err)
	assert.Equal(t, types.Amount(100), got)

	_, err = types.MaxAmount.Add(1)
	assert.ErrorIs(t, err, types.ErrAmountOverflow)

	_, err = types.Amount(1).Add(-1)
	assert.ErrorIs(t, err, types.ErrNegativeAmount)
}

func TestAmountSub(t *testing.T) {
	got, err := types.Amount(100).Sub(30)
	require.NoError(t, err)
	assert.Equal(t, types.Amount(70), got)

	got, err = types.Amount(30).Sub(30)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = types.Amount(30).Sub(31)
	assert.ErrorIs(t, err, types.ErrAmountUnderflow)
}

func TestAmountValidate(t *testing.T) {
	assert.NoError(t, types.Amount(0).Validate())
	assert.NoError(t, types.Amount(5).Validate())
	assert.ErrorIs(t, types.Amount(-5).Validate(), types.ErrNegativeAmount)
}

func TestPercentCeil(t *testing.T) {
	tests := []struct {
		amount types.Amount
		pct    uint32
		want   types.Amount
	}{
		{100, 20, 20},
		{100, 0, 0},
		{100, 100, 100},
		{150, 33, 50},
		{7, 50, 4},
		{types.MaxAmount, 100, types.MaxAmount},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.amount.PercentCeil(tt.pct), "%d * %d%%", tt.amount, tt.pct)
	}
}

func TestFormatMajor(t *testing.T) {
	assert.Equal(t, "49.00", types.Amount(4900).FormatMajor(2))
	assert.Equal(t, "0.05", types.Amount(5).FormatMajor(2))
	assert.Equal(t, "100", types.Amount(100).FormatMajor(0))
	assert.Equal(t, "1.250", types.Amount(1250).FormatMajor(3))
}

func TestSum(t *testing.T) {
	total, err := types.Sum(30, 30, 40)
	require.NoError(t, err)
	assert.Equal(t, types.Amount(100), total)

	_, err = types.Sum(types.MaxAmount, 1)
	assert.ErrorIs(t, err, types.ErrAmountOverflow)
}

func TestAccountRef(t *testing.T) {
	a := types.AccountID("alice")
	ref := a.Ref()
	require.NotNil(t, ref)
	assert.Equal(t, a, *ref)
	assert.True(t, types.AccountID("").IsZero())
}
