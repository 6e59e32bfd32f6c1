package session

import (
	"testing"

	"github.com/cbodonnell/apclient/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countByID(view []NetworkItem) map[int64]int {
	counts := make(map[int64]int)
	for _, item := range view {
		counts[item.ItemID]++
	}
	return counts
}

func TestAccumulator_buildsCumulativeView(t *testing.T) {
	source := queue.NewInMemoryQueue(16)
	acc := NewAccumulator(source)
	acc.Seed(NetworkItem{ItemID: 5, ItemName: "Sword"}, 2)

	require.NoError(t, source.Enqueue(NetworkItem{ItemID: 5, ItemName: "Sword"}))
	require.NoError(t, source.Enqueue(NetworkItem{ItemID: 8, ItemName: "Key"}))

	first := acc.ReceivedItems()
	assert.Equal(t, map[int64]int{5: 3, 8: 1}, countByID(first))

	second := acc.ReceivedItems()
	assert.Equal(t, first, second, "re-reading without new deliveries must not change the view")
}

func TestAccumulator_seedNeverLowers(t *testing.T) {
	source := queue.NewInMemoryQueue(4)
	acc := NewAccumulator(source)
	require.NoError(t, source.Enqueue(NetworkItem{ItemID: 1}))
	require.NoError(t, source.Enqueue(NetworkItem{ItemID: 1}))
	acc.ReceivedItems()

	acc.Seed(NetworkItem{ItemID: 1}, 1)
	assert.Equal(t, map[int64]int{1: 2}, countByID(acc.ReceivedItems()))
}

func TestNetworkItem_IsProgression(t *testing.T) {
	assert.True(t, NetworkItem{Flags: ItemFlagProgression | ItemFlagUseful}.IsProgression())
	assert.False(t, NetworkItem{Flags: ItemFlagTrap}.IsProgression())
}
