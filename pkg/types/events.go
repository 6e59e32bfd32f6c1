package types

// ItemReceivedEvent is emitted once per reconciliation increment.
type ItemReceivedEvent struct {
	Item     Item
	Previous int
}

type LocationCompletedEvent struct {
	LocationID   int64
	LocationName string
}

type ConnectionChangedEvent struct {
	Connected bool
}

type MessageReceivedEvent struct {
	Text string
}

type PositionChangedEvent struct {
	Old Position
	New Position
}

type MapChangedEvent struct {
	OldMapID   int
	OldMapName string
	NewMapID   int
	NewMapName string
}

// Position is the player's last known location in the game world.
type Position struct {
	MapID   int     `json:"mapId"`
	MapName string  `json:"mapName"`
	Region  string  `json:"region"`
	X       float32 `json:"x"`
	Y       float32 `json:"y"`
	Z       float32 `json:"z"`
}
