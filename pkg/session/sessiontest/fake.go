// Package sessiontest provides an in-memory session.Session for tests.
package sessiontest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cbodonnell/apclient/pkg/session"
)

var ErrClosed = errors.New("session is closed")

// Fake records every call and lets tests drive server-side events.
type Fake struct {
	lock sync.Mutex

	// Seed is returned by Connect.
	Seed string
	// Slot is returned by a successful Login.
	Slot int
	// RejectLogin makes Login report an unsuccessful result.
	RejectLogin bool
	ConnectErr  error
	LoginErr    error
	SetErr      error
	GetErr      error

	slotData  map[string]any
	storage   map[string]json.RawMessage
	received  []session.NetworkItem
	completed []int64
	said      []string
	statuses  []session.ClientStatus
	logins    []session.LoginRequest
	setCalls  int
	closed    bool
	connected bool

	handlers map[int]session.Handlers
	nextID   int
}

func New(seed string, slot int) *Fake {
	return &Fake{
		Seed:     seed,
		Slot:     slot,
		slotData: make(map[string]any),
		storage:  make(map[string]json.RawMessage),
		handlers: make(map[int]session.Handlers),
	}
}

// Dialer returns a dialer that always hands out f.
func (f *Fake) Dialer() session.Dialer {
	return session.DialerFunc(func(ctx context.Context, host string) (session.Session, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return f, nil
	})
}

func (f *Fake) Connect(ctx context.Context) (session.RoomInfo, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.ConnectErr != nil {
		return session.RoomInfo{}, f.ConnectErr
	}
	f.closed = false
	f.connected = true
	return session.RoomInfo{SeedName: f.Seed}, nil
}

func (f *Fake) Login(ctx context.Context, req session.LoginRequest) (session.LoginResult, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.logins = append(f.logins, req)
	if f.LoginErr != nil {
		return session.LoginResult{}, f.LoginErr
	}
	if f.RejectLogin {
		return session.LoginResult{Errors: []string{"InvalidSlot"}}, nil
	}
	return session.LoginResult{Successful: true, Slot: f.Slot}, nil
}

// SetSlotData replaces the slot data returned for every slot.
func (f *Fake) SetSlotData(data map[string]any) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.slotData = data
}

func (f *Fake) SlotData(ctx context.Context, slot int) (map[string]any, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.closed {
		return nil, ErrClosed
	}
	return f.slotData, nil
}

func (f *Fake) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.GetErr != nil {
		return nil, false, f.GetErr
	}
	v, ok := f.storage[key]
	return v, ok, nil
}

func (f *Fake) Set(ctx context.Context, key string, value any) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.setCalls++
	if f.SetErr != nil {
		return f.SetErr
	}
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %v", key, err)
	}
	f.storage[key] = b
	return nil
}

// Stored returns the raw value stored under key.
func (f *Fake) Stored(key string) (json.RawMessage, bool) {
	f.lock.Lock()
	defer f.lock.Unlock()
	v, ok := f.storage[key]
	return v, ok
}

func (f *Fake) SetCalls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.setCalls
}

func (f *Fake) ReceivedItems() []session.NetworkItem {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]session.NetworkItem(nil), f.received...)
}

func (f *Fake) CompleteLocations(ctx context.Context, ids []int64) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.closed {
		return ErrClosed
	}
	f.completed = append(f.completed, ids...)
	return nil
}

func (f *Fake) Completed() []int64 {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]int64(nil), f.completed...)
}

func (f *Fake) Say(ctx context.Context, text string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.closed {
		return ErrClosed
	}
	f.said = append(f.said, text)
	return nil
}

func (f *Fake) Said() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]string(nil), f.said...)
}

func (f *Fake) UpdateStatus(ctx context.Context, status session.ClientStatus) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.closed {
		return ErrClosed
	}
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *Fake) Statuses() []session.ClientStatus {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]session.ClientStatus(nil), f.statuses...)
}

func (f *Fake) Logins() []session.LoginRequest {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]session.LoginRequest(nil), f.logins...)
}

func (f *Fake) Subscribe(handlers session.Handlers) func() {
	f.lock.Lock()
	defer f.lock.Unlock()
	id := f.nextID
	f.nextID++
	f.handlers[id] = handlers
	return func() {
		f.lock.Lock()
		defer f.lock.Unlock()
		delete(f.handlers, id)
	}
}

// Subscribers returns the number of registered handler sets.
func (f *Fake) Subscribers() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return len(f.handlers)
}

func (f *Fake) snapshotHandlers() []session.Handlers {
	f.lock.Lock()
	defer f.lock.Unlock()
	handlers := make([]session.Handlers, 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	return handlers
}

// PushItems appends grants to the cumulative view and notifies subscribers.
func (f *Fake) PushItems(items ...session.NetworkItem) {
	f.lock.Lock()
	f.received = append(f.received, items...)
	f.lock.Unlock()
	for _, h := range f.snapshotHandlers() {
		if h.OnItemsReceived != nil {
			h.OnItemsReceived()
		}
	}
}

// Resend notifies subscribers without changing the cumulative view, as the
// service does after a reconnect.
func (f *Fake) Resend() {
	for _, h := range f.snapshotHandlers() {
		if h.OnItemsReceived != nil {
			h.OnItemsReceived()
		}
	}
}

func (f *Fake) PushMessage(text string) {
	for _, h := range f.snapshotHandlers() {
		if h.OnMessage != nil {
			h.OnMessage(text)
		}
	}
}

// Drop simulates the service closing the connection.
func (f *Fake) Drop(reason string) {
	f.lock.Lock()
	f.closed = true
	f.connected = false
	f.lock.Unlock()
	for _, h := range f.snapshotHandlers() {
		if h.OnClosed != nil {
			h.OnClosed(reason)
		}
	}
}

func (f *Fake) Close() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.closed = true
	f.connected = false
	return nil
}

func (f *Fake) IsConnected() bool {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.connected
}
