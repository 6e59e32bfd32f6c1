package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func populatedState() *GameState {
	index := 12
	state := NewGameState()
	state.CompleteLocation(100)
	state.CompleteLocation(7)
	state.ReceivedItems[5] = &Item{ID: 5, Name: "Sword", Quantity: 2, Category: "weapon", IsProgression: true}
	state.ReceivedItems[9] = &Item{ID: 9, Name: "Potion", Quantity: 11}
	state.LastCheckedIndex = &index
	state.CustomValues["difficulty"] = json.RawMessage(`"hard"`)
	state.CustomValues["flags"] = json.RawMessage(`{"a":[1,2.5,null],"b":true}`)
	return state
}

func TestGameState_JSONRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		state *GameState
	}{
		{name: "empty", state: NewGameState()},
		{name: "populated", state: populatedState()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.state)
			require.NoError(t, err)

			got := &GameState{}
			require.NoError(t, json.Unmarshal(b, got))
			assert.True(t, got.Equal(tt.state), "got %s", b)
		})
	}
}

func TestGameState_MarshalSortsLocations(t *testing.T) {
	b, err := json.Marshal(populatedState())
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.JSONEq(t, `[7,100]`, string(raw["completedLocations"]))
}

func TestGameState_Copy(t *testing.T) {
	original := populatedState()
	clone := original.Copy()
	require.True(t, clone.Equal(original))

	clone.ReceivedItems[5].Quantity = 99
	clone.CompleteLocation(1)
	*clone.LastCheckedIndex = 0

	assert.Equal(t, 2, original.Quantity(5))
	assert.False(t, original.IsLocationCompleted(1))
	assert.Equal(t, 12, *original.LastCheckedIndex)
}

func TestGameState_MergeProgress(t *testing.T) {
	local := NewGameState()
	local.ReceivedItems[5] = &Item{ID: 5, Name: "Potion", Quantity: 3}
	local.CompleteLocation(9)

	reloaded := NewGameState()
	reloaded.ReceivedItems[5] = &Item{ID: 5, Name: "Potion", Quantity: 2}
	reloaded.ReceivedItems[6] = &Item{ID: 6, Name: "Ether", Quantity: 1}
	reloaded.CompleteLocation(11)
	reloaded.CustomValues["difficulty"] = json.RawMessage(`"hard"`)

	reloaded.MergeProgress(local)

	assert.Equal(t, 3, reloaded.Quantity(5))
	assert.Equal(t, 1, reloaded.Quantity(6))
	assert.Equal(t, []int64{9, 11}, reloaded.SortedLocations())
	assert.Equal(t, json.RawMessage(`"hard"`), reloaded.CustomValues["difficulty"])

	local.ReceivedItems[5].Quantity = 7
	assert.Equal(t, 3, reloaded.Quantity(5), "merge must not alias local items")
}

func TestGameState_UnmarshalCompactsCustomValues(t *testing.T) {
	b := []byte(`{"completedLocations":[],"receivedItems":{},"customValues":{"checkpoint":{
      "x": 1,
      "y": [1, 2]
    }}}`)
	got := &GameState{}
	require.NoError(t, json.Unmarshal(b, got))
	assert.Equal(t, `{"x":1,"y":[1,2]}`, string(got.CustomValues["checkpoint"]))
}

func TestSessionKey(t *testing.T) {
	key := SessionKey{Game: "GameX", Slot: 3, Seed: "S1"}
	assert.Equal(t, "GameX_3_S1", key.String())
	assert.Equal(t, "GameX_3_S1_GameState", key.Field("GameState"))
	assert.False(t, key.IsZero())
	assert.True(t, SessionKey{}.IsZero())
}
