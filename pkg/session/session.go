// Package session describes the remote coordination service as consumed by
// the client. Transport, authentication and wire framing belong to the
// implementation behind these interfaces.
package session

import (
	"context"
	"encoding/json"
	"fmt"
)

// Item flags as reported by the service.
const (
	ItemFlagProgression = 1 << iota
	ItemFlagUseful
	ItemFlagTrap
)

// NetworkItem is one entry of the cumulative received-items view.
type NetworkItem struct {
	ItemID     int64  `json:"item"`
	ItemName   string `json:"itemName"`
	LocationID int64  `json:"location"`
	Player     int    `json:"player"`
	Flags      int    `json:"flags"`
}

func (i NetworkItem) IsProgression() bool {
	return i.Flags&ItemFlagProgression != 0
}

type RoomInfo struct {
	SeedName string
}

// ItemsHandling selects which item grants the service sends to this client.
type ItemsHandling int

const (
	ItemsHandlingRemote ItemsHandling = 1 << iota
	ItemsHandlingOwnWorld
	ItemsHandlingStartingInventory

	ItemsHandlingAll = ItemsHandlingRemote | ItemsHandlingOwnWorld | ItemsHandlingStartingInventory
)

type Version struct {
	Major int
	Minor int
	Build int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Build)
}

// ProtocolVersion is the protocol version announced on login.
var ProtocolVersion = Version{Major: 0, Minor: 6, Build: 1}

type LoginRequest struct {
	Game            string
	Name            string
	Password        string
	UUID            string
	ItemsHandling   ItemsHandling
	Version         Version
	RequestSlotData bool
}

type LoginResult struct {
	Successful bool
	Slot       int
	Errors     []string
}

type ClientStatus int

const (
	ClientStatusUnknown   ClientStatus = 0
	ClientStatusConnected ClientStatus = 5
	ClientStatusReady     ClientStatus = 10
	ClientStatusPlaying   ClientStatus = 20
	ClientStatusGoal      ClientStatus = 30
)

// Handlers receive asynchronous session notifications. Nil handlers are skipped.
// Handlers may be invoked from the session's own goroutines.
type Handlers struct {
	// OnItemsReceived fires whenever the cumulative item view changed.
	OnItemsReceived func()
	// OnMessage fires for every chat or server message.
	OnMessage func(text string)
	// OnClosed fires once when the underlying connection ends.
	OnClosed func(reason string)
}

// Session is one connection to the coordination service.
type Session interface {
	Connect(ctx context.Context) (RoomInfo, error)
	Login(ctx context.Context, req LoginRequest) (LoginResult, error)
	SlotData(ctx context.Context, slot int) (map[string]any, error)
	// Get returns the stored value for key and whether it exists.
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	// Set stores value under key with a single replace operation.
	Set(ctx context.Context, key string, value any) error
	// ReceivedItems returns every item granted to this slot so far, including
	// repeats. It may be resent in full after a reconnect.
	ReceivedItems() []NetworkItem
	CompleteLocations(ctx context.Context, ids []int64) error
	Say(ctx context.Context, text string) error
	UpdateStatus(ctx context.Context, status ClientStatus) error
	// Subscribe registers handlers and returns a function that removes them.
	Subscribe(handlers Handlers) (unsubscribe func())
	Close() error
}

// Dialer creates sessions for a host.
type Dialer interface {
	Dial(ctx context.Context, host string) (Session, error)
}

type DialerFunc func(ctx context.Context, host string) (Session, error)

func (f DialerFunc) Dial(ctx context.Context, host string) (Session, error) {
	return f(ctx, host)
}
