package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Item is the local record of how many copies of an item id the player has
// been granted.
type Item struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Quantity      int    `json:"quantity"`
	Category      string `json:"category,omitempty"`
	IsProgression bool   `json:"isProgression"`
}

// GameState is the synchronized snapshot persisted per session.
type GameState struct {
	// CompletedLocations is the set of location ids reported to the server
	CompletedLocations map[int64]struct{}
	// ReceivedItems maps item ids to the local grant record
	ReceivedItems map[int64]*Item
	// LastCheckedIndex is a legacy cursor kept for older snapshots
	LastCheckedIndex *int
	// CustomValues holds caller-defined values as raw JSON
	CustomValues map[string]json.RawMessage
}

func NewGameState() *GameState {
	return &GameState{
		CompletedLocations: make(map[int64]struct{}),
		ReceivedItems:      make(map[int64]*Item),
		CustomValues:       make(map[string]json.RawMessage),
	}
}

func (g *GameState) Copy() *GameState {
	c := NewGameState()
	for id := range g.CompletedLocations {
		c.CompletedLocations[id] = struct{}{}
	}
	for id, item := range g.ReceivedItems {
		clone := *item
		c.ReceivedItems[id] = &clone
	}
	if g.LastCheckedIndex != nil {
		index := *g.LastCheckedIndex
		c.LastCheckedIndex = &index
	}
	for k, v := range g.CustomValues {
		c.CustomValues[k] = append(json.RawMessage(nil), v...)
	}
	return c
}

func (g *GameState) IsLocationCompleted(id int64) bool {
	_, ok := g.CompletedLocations[id]
	return ok
}

// CompleteLocation marks id as completed and reports whether it was new.
func (g *GameState) CompleteLocation(id int64) bool {
	if g.IsLocationCompleted(id) {
		return false
	}
	g.CompletedLocations[id] = struct{}{}
	return true
}

// MergeProgress folds the progress recorded in other into g. Completed
// locations are united and every item keeps the larger quantity.
func (g *GameState) MergeProgress(other *GameState) {
	for id := range other.CompletedLocations {
		g.CompletedLocations[id] = struct{}{}
	}
	for id, item := range other.ReceivedItems {
		local, ok := g.ReceivedItems[id]
		if !ok {
			clone := *item
			g.ReceivedItems[id] = &clone
			continue
		}
		if item.Quantity > local.Quantity {
			local.Quantity = item.Quantity
		}
	}
}

// Quantity returns the number of copies of id granted so far.
func (g *GameState) Quantity(id int64) int {
	if item, ok := g.ReceivedItems[id]; ok {
		return item.Quantity
	}
	return 0
}

// SortedLocations returns the completed location ids in ascending order.
func (g *GameState) SortedLocations() []int64 {
	ids := make([]int64, 0, len(g.CompletedLocations))
	for id := range g.CompletedLocations {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Equal reports whether both snapshots hold the same data.
func (g *GameState) Equal(other *GameState) bool {
	if g == nil || other == nil {
		return g == other
	}
	if len(g.CompletedLocations) != len(other.CompletedLocations) ||
		len(g.ReceivedItems) != len(other.ReceivedItems) ||
		len(g.CustomValues) != len(other.CustomValues) {
		return false
	}
	for id := range g.CompletedLocations {
		if !other.IsLocationCompleted(id) {
			return false
		}
	}
	for id, item := range g.ReceivedItems {
		o, ok := other.ReceivedItems[id]
		if !ok || *o != *item {
			return false
		}
	}
	if (g.LastCheckedIndex == nil) != (other.LastCheckedIndex == nil) {
		return false
	}
	if g.LastCheckedIndex != nil && *g.LastCheckedIndex != *other.LastCheckedIndex {
		return false
	}
	for k, v := range g.CustomValues {
		if !bytes.Equal(v, other.CustomValues[k]) {
			return false
		}
	}
	return true
}

type gameStateJSON struct {
	CompletedLocations []int64                    `json:"completedLocations"`
	ReceivedItems      map[int64]*Item            `json:"receivedItems"`
	LastCheckedIndex   *int                       `json:"lastCheckedIndex,omitempty"`
	CustomValues       map[string]json.RawMessage `json:"customValues,omitempty"`
}

func (g *GameState) MarshalJSON() ([]byte, error) {
	return json.Marshal(gameStateJSON{
		CompletedLocations: g.SortedLocations(),
		ReceivedItems:      g.ReceivedItems,
		LastCheckedIndex:   g.LastCheckedIndex,
		CustomValues:       g.CustomValues,
	})
}

func (g *GameState) UnmarshalJSON(b []byte) error {
	var raw gameStateJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	state := NewGameState()
	for _, id := range raw.CompletedLocations {
		state.CompletedLocations[id] = struct{}{}
	}
	for id, item := range raw.ReceivedItems {
		if item == nil {
			return fmt.Errorf("received item %d is null", id)
		}
		item.ID = id
		state.ReceivedItems[id] = item
	}
	state.LastCheckedIndex = raw.LastCheckedIndex
	for k, v := range raw.CustomValues {
		state.CustomValues[k] = CompactValue(v)
	}
	*g = *state
	return nil
}

// CompactValue returns raw without insignificant whitespace, the form every
// encoder writes custom values in.
func CompactValue(raw json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return json.RawMessage(buf.Bytes())
}
