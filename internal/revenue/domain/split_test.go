package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitDefaultCommission(t *testing.T) {
	record, err := Split(10000, 3000)
	require.NoError(t, err)
	assert.Equal(t, RevenueRecord{TotalAmount: 10000, PlatformShare: 3000, CreatorShare: 7000}, record)
}

func TestSplitSharesAlwaysSumToAmount(t *testing.T) {
	rates := []int64{0, 1, 2500, 3000, 3333, 9999, 10000}
	for _, bps := range rates {
		for amount := int64(0); amount <= 2000; amount += 7 {
			record, err := Split(amount, bps)
			require.NoError(t, err)
			assert.Equal(t, amount, record.PlatformShare+record.CreatorShare, "amount=%d bps=%d", amount, bps)
			assert.GreaterOrEqual(t, record.CreatorShare, int64(0))
		}
	}
}

func TestSplitRoundsHalfUp(t *testing.T) {
	cases := []struct {
		amount   int64
		bps      int64
		platform int64
	}{
		{amount: 5, bps: 1000, platform: 1},  // 0.5 rounds up
		{amount: 4, bps: 1000, platform: 0},  // 0.4 rounds down
		{amount: 15, bps: 3000, platform: 5}, // 4.5 rounds up
		{amount: 1, bps: 10000, platform: 1},
	}
	for _, tc := range cases {
		record, err := Split(tc.amount, tc.bps)
		require.NoError(t, err)
		assert.Equal(t, tc.platform, record.PlatformShare, "amount=%d bps=%d", tc.amount, tc.bps)
	}
}

func TestSplitRejectsInvalidInput(t *testing.T) {
	_, err := Split(-1, 3000)
	assert.ErrorIs(t, err, ErrNegativeAmount)

	_, err = Split(100, -1)
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = Split(100, 10001)
	assert.ErrorIs(t, err, ErrInvalidRate)
}

func TestSplitBoundsLargeAmounts(t *testing.T) {
	record, err := Split(MaxSplitAmount, 10000)
	require.NoError(t, err)
	assert.Equal(t, MaxSplitAmount, record.PlatformShare)
	assert.Equal(t, int64(0), record.CreatorShare)

	record, err = Split(MaxSplitAmount, 3000)
	require.NoError(t, err)
	assert.Equal(t, MaxSplitAmount, record.PlatformShare+record.CreatorShare)

	_, err = Split(MaxSplitAmount+1, 3000)
	assert.ErrorIs(t, err, ErrAmountTooLarge)
}
