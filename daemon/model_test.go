package daemon

import (
	"testing"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

// TestRemainingSequence checks the computation of the number of blocks left
// before a coin becomes spendable through the recovery path.
func TestRemainingSequence(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		blockHeight   fn.Option[int32]
		currentHeight uint32
		timelock      uint16
		expected      uint32
	}{
		{
			name:          "unconfirmed coin has full timelock",
			blockHeight:   fn.None[int32](),
			currentHeight: 1000,
			timelock:      144,
			expected:      144,
		},
		{
			name:          "freshly confirmed",
			blockHeight:   fn.Some(int32(1000)),
			currentHeight: 1000,
			timelock:      144,
			expected:      144,
		},
		{
			name:          "partially matured",
			blockHeight:   fn.Some(int32(900)),
			currentHeight: 1000,
			timelock:      144,
			expected:      44,
		},
		{
			name:          "matured exactly",
			blockHeight:   fn.Some(int32(856)),
			currentHeight: 1000,
			timelock:      144,
			expected:      0,
		},
		{
			name:          "clamps at zero past maturity",
			blockHeight:   fn.Some(int32(100)),
			currentHeight: 1000,
			timelock:      144,
			expected:      0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			coin := Coin{BlockHeight: tc.blockHeight}
			got := RemainingSequence(
				coin, tc.currentHeight, tc.timelock,
			)
			require.Equal(t, tc.expected, got)
		})
	}
}
