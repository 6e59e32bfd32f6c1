// Package client connects a running game to the multiplayer coordination
// service. It owns the session, keeps the received items and completed
// locations of the slot in sync, and publishes notifications for the caller
// on an event queue.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cbodonnell/apclient/pkg/gps"
	"github.com/cbodonnell/apclient/pkg/locations"
	"github.com/cbodonnell/apclient/pkg/log"
	"github.com/cbodonnell/apclient/pkg/memory"
	"github.com/cbodonnell/apclient/pkg/metrics"
	"github.com/cbodonnell/apclient/pkg/monitor"
	"github.com/cbodonnell/apclient/pkg/queue"
	"github.com/cbodonnell/apclient/pkg/reconcile"
	"github.com/cbodonnell/apclient/pkg/repositories"
	"github.com/cbodonnell/apclient/pkg/scope"
	"github.com/cbodonnell/apclient/pkg/session"
	"github.com/cbodonnell/apclient/pkg/state"
	"github.com/cbodonnell/apclient/pkg/types"
	"github.com/cbodonnell/apclient/pkg/workers"
	"github.com/google/uuid"
)

const (
	DefaultCloseTimeout = 2 * time.Second

	sessionEventBuffer = 64
)

type Client struct {
	// lifecycle serializes Connect, Login and Disconnect.
	lifecycle sync.Mutex
	lock      sync.RWMutex
	conn      *connection
	state     atomic.Int32

	id               uuid.UUID
	dialer           session.Dialer
	reader           memory.Reader
	eventQueue       queue.Queue
	stores           []repositories.Store
	scope            *scope.Scope
	locationsEnabled func() bool
	itemCategory     func(itemID int64) string

	batchSize       int
	pollInterval    time.Duration
	saveInterval    time.Duration
	minSaveInterval time.Duration
	storeTimeout    time.Duration
	closeTimeout    time.Duration

	logger  *log.Logger
	metrics *metrics.Metrics
}

type NewClientOptions struct {
	Dialer session.Dialer
	// Reader gives access to the memory of the game process.
	Reader memory.Reader
	// EventQueue receives the notifications defined in pkg/types.
	EventQueue queue.Queue
	// Stores are local stores used next to the service's data storage.
	// The client closes them on Close.
	Stores []repositories.Store
	// LocationsEnabled, when set, must return true for locations to be
	// evaluated or sent.
	LocationsEnabled func() bool
	// ItemCategory optionally names the category of a received item.
	ItemCategory func(itemID int64) string

	BatchSize       int
	PollInterval    time.Duration
	SaveInterval    time.Duration
	MinSaveInterval time.Duration
	StoreTimeout    time.Duration
	CloseTimeout    time.Duration

	Logger *log.Logger
	// Metrics is optional.
	Metrics *metrics.Metrics
}

// connection is everything that lives exactly as long as one session.
type connection struct {
	session     session.Session
	game        string
	seed        string
	unsubscribe func()
	events      chan workers.SessionEvent
	items       chan struct{}
	ctx         context.Context
	cancel      context.CancelFunc

	// set on login
	slot    int
	key     types.SessionKey
	options map[string]any
	manager *state.Manager
	engine  *reconcile.Engine
	storage *repositories.DataStorageStore
	tracker *gps.Tracker
	ready   atomic.Bool
}

// signalItems wakes the session worker to reconcile. A signal already
// pending covers this one.
func (conn *connection) signalItems() {
	select {
	case conn.items <- struct{}{}:
	default:
	}
}

// post hands an event to the session worker without blocking the session.
func (conn *connection) post(event workers.SessionEvent) bool {
	select {
	case conn.events <- event:
		return true
	default:
		return false
	}
}

func New(opts NewClientOptions) *Client {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.CloseTimeout <= 0 {
		opts.CloseTimeout = DefaultCloseTimeout
	}
	return &Client{
		id:               uuid.New(),
		dialer:           opts.Dialer,
		reader:           opts.Reader,
		eventQueue:       opts.EventQueue,
		stores:           opts.Stores,
		scope:            scope.New(),
		locationsEnabled: opts.LocationsEnabled,
		itemCategory:     opts.ItemCategory,
		batchSize:        opts.BatchSize,
		pollInterval:     opts.PollInterval,
		saveInterval:     opts.SaveInterval,
		minSaveInterval:  opts.MinSaveInterval,
		storeTimeout:     opts.StoreTimeout,
		closeTimeout:     opts.CloseTimeout,
		logger:           opts.Logger.Named("client"),
		metrics:          opts.Metrics,
	}
}

func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) setState(s State) {
	old := State(c.state.Swap(int32(s)))
	if old != s {
		c.logger.Debug("State %s -> %s", old, s)
	}
}

func (c *Client) IsConnected() bool {
	switch c.State() {
	case StateConnected, StateLoggingIn, StateLoggedIn:
		return true
	default:
		return false
	}
}

func (c *Client) IsLoggedIn() bool {
	return c.State() == StateLoggedIn
}

func (c *Client) current() *connection {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.conn
}

func (c *Client) connected() (*connection, error) {
	conn := c.current()
	if conn == nil {
		return nil, &ErrNotConnected{}
	}
	return conn, nil
}

func (c *Client) loggedIn() (*connection, error) {
	conn := c.current()
	if conn == nil || !conn.ready.Load() {
		return nil, &ErrNotLoggedIn{}
	}
	return conn, nil
}

func (c *Client) publish(event interface{}) {
	if c.eventQueue == nil {
		return
	}
	if err := c.eventQueue.Enqueue(event); err != nil {
		c.logger.Warn("Failed to enqueue %T: %v", event, err)
	}
}

// Connect tears down any previous session and opens a new one. Failures are
// logged and returned; the client is left disconnected and nothing is retried.
func (c *Client) Connect(ctx context.Context, host string, game string) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.disconnect()
	c.setState(StateConnecting)

	sess, err := c.dialer.Dial(ctx, host)
	if err != nil {
		return c.connectFailed(host, err)
	}
	info, err := sess.Connect(ctx)
	if err != nil {
		sess.Close()
		return c.connectFailed(host, err)
	}

	connCtx, cancel := context.WithCancel(context.Background())
	conn := &connection{
		session: sess,
		game:    game,
		seed:    info.SeedName,
		events:  make(chan workers.SessionEvent, sessionEventBuffer),
		items:   make(chan struct{}, 1),
		ctx:     connCtx,
		cancel:  cancel,
	}
	conn.unsubscribe = sess.Subscribe(session.Handlers{
		OnItemsReceived: conn.signalItems,
		OnMessage: func(text string) {
			if !conn.post(workers.SessionEvent{Type: workers.SessionEventTypeMessage, Text: text}) {
				c.logger.Warn("Dropped message: %s", text)
			}
		},
		OnClosed: func(reason string) {
			if !conn.post(workers.SessionEvent{Type: workers.SessionEventTypeClosed, Text: reason}) {
				go c.handleClosed(conn, reason)
			}
		},
	})

	worker := workers.NewSessionEventWorker(workers.NewSessionEventWorkerOptions{
		SessionEventChan: conn.events,
		ItemsChan:        conn.items,
		OnItemsReceived: func(ctx context.Context) {
			if !conn.ready.Load() {
				return
			}
			if _, err := c.reconcile(ctx, conn); err != nil && ctx.Err() == nil {
				c.logger.Error("Failed to receive items: %v", err)
			}
		},
		OnMessage: func(ctx context.Context, text string) {
			c.logger.Debug("Message received")
			c.publish(types.MessageReceivedEvent{Text: text})
		},
		OnClosed: func(reason string) {
			c.handleClosed(conn, reason)
		},
	})

	c.lock.Lock()
	c.conn = conn
	c.lock.Unlock()
	go worker.Start(connCtx)

	c.setState(StateConnected)
	c.logger.Info("Connected to %s, seed %s", host, conn.seed)
	return nil
}

func (c *Client) connectFailed(host string, err error) error {
	c.setState(StateDisconnected)
	c.logger.Error("Couldn't connect to %s: %v", host, err)
	return fmt.Errorf("failed to connect to %s: %v", host, err)
}

func (c *Client) handleClosed(conn *connection, reason string) {
	c.logger.Warn("Connection closed: %s", reason)

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.current() != conn {
		return
	}
	c.disconnect()
}

// Login authenticates the slot, loads its options and saved game state,
// reconciles received items and starts periodic persistence.
func (c *Client) Login(ctx context.Context, player string, password string) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	conn := c.current()
	if conn == nil || c.State() != StateConnected {
		return &ErrNotConnected{}
	}
	c.setState(StateLoggingIn)

	result, err := conn.session.Login(ctx, session.LoginRequest{
		Game:            conn.game,
		Name:            player,
		Password:        password,
		UUID:            c.id.String(),
		ItemsHandling:   session.ItemsHandlingAll,
		Version:         session.ProtocolVersion,
		RequestSlotData: true,
	})
	if err != nil {
		c.setState(StateConnected)
		c.logger.Error("Login failed: %v", err)
		return fmt.Errorf("failed to login: %v", err)
	}
	if !result.Successful {
		c.setState(StateConnected)
		err := &ErrLoginRejected{Reasons: result.Errors}
		c.logger.Error("Login failed: %v", err)
		return err
	}
	c.logger.Info("Connected as player %s playing %s", player, conn.game)

	options := c.loadOptions(ctx, conn.session, result.Slot)

	key := types.SessionKey{Game: conn.game, Slot: result.Slot, Seed: conn.seed}
	storage := repositories.NewDataStorageStore(conn.session)
	manager := state.NewManager(state.NewManagerOptions{
		Key:             key,
		Stores:          append([]repositories.Store{storage}, c.stores...),
		StoreTimeout:    c.storeTimeout,
		MinSaveInterval: c.minSaveInterval,
		Logger:          c.logger,
		Metrics:         c.metrics,
	})
	if _, err := manager.Load(ctx); err != nil {
		c.setState(StateConnected)
		return fmt.Errorf("failed to load game state: %v", err)
	}
	engine := reconcile.NewEngine(reconcile.NewEngineOptions{
		StateManager: manager,
		EventQueue:   c.eventQueue,
		Category:     c.itemCategory,
		Logger:       c.logger,
		Metrics:      c.metrics,
	})

	c.lock.Lock()
	conn.slot = result.Slot
	conn.key = key
	conn.options = options
	conn.manager = manager
	conn.engine = engine
	conn.storage = storage
	c.lock.Unlock()
	conn.ready.Store(true)

	if _, err := c.reconcile(ctx, conn); err != nil {
		c.logger.Error("Failed to receive items: %v", err)
	}

	c.setState(StateLoggedIn)
	c.publish(types.ConnectionChangedEvent{Connected: true})

	saveWorker := workers.NewSaveGameStateWorker(workers.NewSaveGameStateWorkerOptions{
		StateManager: manager,
		Interval:     c.saveInterval,
	})
	go saveWorker.Start(conn.ctx)
	return nil
}

func (c *Client) loadOptions(ctx context.Context, sess session.Session, slot int) map[string]any {
	options := map[string]any{}
	slotData, err := sess.SlotData(ctx, slot)
	if err != nil {
		c.logger.Error("Failed to load slot data: %v", err)
		return options
	}
	raw, ok := slotData["options"]
	if !ok || raw == nil {
		c.logger.Warn("No options found")
		return options
	}

	var b []byte
	switch v := raw.(type) {
	case string:
		b = []byte(v)
	case json.RawMessage:
		b = v
	default:
		if b, err = json.Marshal(v); err != nil {
			c.logger.Error("Failed to read options: %v", err)
			return options
		}
	}
	if err := json.Unmarshal(b, &options); err != nil {
		c.logger.Error("Failed to read options: %v", err)
		return map[string]any{}
	}
	c.logger.Debug("Options: %s", b)
	return options
}

// Disconnect ends the current session. It is safe to call at any time;
// without a session it only resets the state.
func (c *Client) Disconnect() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	c.disconnect()
}

func (c *Client) disconnect() {
	c.lock.Lock()
	conn := c.conn
	c.conn = nil
	c.lock.Unlock()

	if conn != nil {
		c.logger.Info("Disconnecting...")
		conn.ready.Store(false)
		conn.unsubscribe()
		c.scope.Reset()
		conn.cancel()
		if err := conn.session.Close(); err != nil {
			c.logger.Warn("Failed to close session: %v", err)
		}
	}

	c.setState(StateDisconnected)
	if conn != nil {
		c.publish(types.ConnectionChangedEvent{Connected: false})
		c.logger.Info("Disconnected")
	}
}

// Close performs a final save bounded by the close timeout, disconnects and
// closes the local stores.
func (c *Client) Close(ctx context.Context) error {
	if conn, err := c.loggedIn(); err == nil {
		saveCtx, cancel := context.WithTimeout(ctx, c.closeTimeout)
		if err := conn.manager.Save(saveCtx); err != nil {
			c.logger.Error("Could not perform final save: %v", err)
		}
		cancel()
	}

	c.Disconnect()
	c.scope.Close()

	var errs []error
	for _, store := range c.stores {
		if err := store.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s store: %v", store.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// CancelMonitors stops every running MonitorLocations call.
func (c *Client) CancelMonitors() {
	generation := c.scope.Reset()
	c.logger.Debug("Cancelled monitors, generation %d", generation)
}

func (c *Client) locationsAllowed() bool {
	return c.locationsEnabled == nil || c.locationsEnabled()
}

// MonitorLocations polls the given locations and sends each one once it is
// reached. It returns when all of them were sent, when ctx ends, or on
// Disconnect and CancelMonitors. Locations already completed are skipped.
func (c *Client) MonitorLocations(ctx context.Context, list []locations.Checker) error {
	conn, err := c.loggedIn()
	if err != nil {
		return err
	}
	ctx, cancel := c.scope.Combine(ctx)
	defer cancel()

	gameState, err := conn.manager.Get(ctx)
	if err != nil {
		return err
	}
	pending := make([]locations.Checker, 0, len(list))
	for _, location := range list {
		if !gameState.IsLocationCompleted(location.Meta().ID) {
			pending = append(pending, location)
		}
	}

	scheduler := monitor.NewScheduler(monitor.NewSchedulerOptions{
		Reader:    c.reader,
		BatchSize: c.batchSize,
		Interval:  c.pollInterval,
		Gate:      c.locationsAllowed,
		Logger:    c.logger,
		Metrics:   c.metrics,
	})
	return scheduler.Run(ctx, pending, func(ctx context.Context, location locations.Checker) {
		if err := c.sendLocation(ctx, conn, location); err != nil {
			c.logger.Error("Failed to send location %d: %v", location.Meta().ID, err)
		}
	})
}

// SendLocation reports a location as completed.
func (c *Client) SendLocation(ctx context.Context, location locations.Checker) error {
	conn, err := c.loggedIn()
	if err != nil {
		c.logger.Error("Must be connected and logged in to send locations")
		return err
	}
	ctx, cancel := c.scope.Combine(ctx)
	defer cancel()
	return c.sendLocation(ctx, conn, location)
}

func (c *Client) sendLocation(ctx context.Context, conn *connection, location locations.Checker) error {
	meta := location.Meta()
	if !c.locationsAllowed() {
		c.logger.Debug("Location precondition not met, location %d not sent", meta.ID)
		return nil
	}

	c.logger.Debug("Marking location %d as complete", meta.ID)
	if err := conn.session.CompleteLocations(ctx, []int64{meta.ID}); err != nil {
		return fmt.Errorf("failed to complete location %d: %v", meta.ID, err)
	}

	// the service has the location now, so record it even if ctx ends
	ctx = context.WithoutCancel(ctx)
	var added bool
	err := conn.manager.Mutate(ctx, func(gameState *types.GameState) error {
		added = gameState.CompleteLocation(meta.ID)
		return nil
	})
	if err != nil {
		return err
	}
	if !added {
		return nil
	}

	c.logger.Info("%s (%d) Completed", meta.Name, meta.ID)
	c.publish(types.LocationCompletedEvent{LocationID: meta.ID, LocationName: meta.Name})
	if _, err := conn.manager.SaveIfDue(ctx); err != nil {
		c.logger.Error("Failed to save game state: %v", err)
	}
	return nil
}

func (c *Client) SendChatMessage(ctx context.Context, text string) error {
	conn, err := c.connected()
	if err != nil {
		return err
	}
	if err := conn.session.Say(ctx, text); err != nil {
		return fmt.Errorf("failed to send message: %v", err)
	}
	return nil
}

func (c *Client) SendGoalCompletion(ctx context.Context) error {
	conn, err := c.loggedIn()
	if err != nil {
		return err
	}
	c.logger.Debug("Sending goal")
	if err := conn.session.UpdateStatus(ctx, session.ClientStatusGoal); err != nil {
		c.logger.Error("Could not send goal: %v", err)
		return fmt.Errorf("failed to send goal: %v", err)
	}
	return nil
}

// ReceiveItems reconciles the service's received items with the game state.
func (c *Client) ReceiveItems(ctx context.Context) error {
	conn, err := c.loggedIn()
	if err != nil {
		return err
	}
	_, err = c.reconcile(ctx, conn)
	return err
}

func (c *Client) reconcile(ctx context.Context, conn *connection) (reconcile.Result, error) {
	ctx, cancel := c.scope.Combine(ctx)
	defer cancel()
	return conn.engine.Reconcile(ctx, conn.session.ReceivedItems())
}

// ForceReloadAllItems forgets every received item and receives them again,
// raising a fresh notification for each.
func (c *Client) ForceReloadAllItems(ctx context.Context) error {
	conn, err := c.loggedIn()
	if err != nil {
		return err
	}
	err = conn.manager.Commit(ctx, func(gameState *types.GameState) (bool, error) {
		gameState.ReceivedItems = make(map[int64]*types.Item)
		gameState.LastCheckedIndex = nil
		return true, nil
	})
	if err != nil {
		return err
	}
	_, err = c.reconcile(ctx, conn)
	return err
}

// Options returns a copy of the slot options loaded on login.
func (c *Client) Options() map[string]any {
	c.lock.RLock()
	defer c.lock.RUnlock()
	options := map[string]any{}
	if c.conn == nil {
		return options
	}
	for k, v := range c.conn.options {
		options[k] = v
	}
	return options
}

// SessionKey returns the key of the logged in slot.
func (c *Client) SessionKey() (types.SessionKey, bool) {
	conn, err := c.loggedIn()
	if err != nil {
		return types.SessionKey{}, false
	}
	return conn.key, true
}

// GameState returns a copy of the synchronized game state.
func (c *Client) GameState(ctx context.Context) (*types.GameState, error) {
	conn, err := c.loggedIn()
	if err != nil {
		return nil, err
	}
	return conn.manager.Get(ctx)
}

// CustomValue decodes the custom value stored under key into out and
// reports whether it exists.
func (c *Client) CustomValue(ctx context.Context, key string, out any) (bool, error) {
	gameState, err := c.GameState(ctx)
	if err != nil {
		return false, err
	}
	raw, ok := gameState.CustomValues[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("failed to decode custom value %s: %v", key, err)
	}
	return true, nil
}

// SetCustomValue stores value under key; it is persisted with the game state.
func (c *Client) SetCustomValue(ctx context.Context, key string, value any) error {
	conn, err := c.loggedIn()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode custom value %s: %v", key, err)
	}
	err = conn.manager.Mutate(ctx, func(gameState *types.GameState) error {
		gameState.CustomValues[key] = raw
		return nil
	})
	if err != nil {
		return err
	}
	if _, err := conn.manager.SaveIfDue(ctx); err != nil {
		c.logger.Error("Failed to save game state: %v", err)
	}
	return nil
}

// TrackPosition starts polling source for the player's position until the
// session ends. Changes are published as events and saved to the service.
func (c *Client) TrackPosition(source gps.PositionFunc, interval time.Duration) error {
	conn, err := c.loggedIn()
	if err != nil {
		return err
	}
	tracker := gps.NewTracker(gps.NewTrackerOptions{
		Source:     source,
		Interval:   interval,
		EventQueue: c.eventQueue,
		OnChange: func(ctx context.Context, position types.Position) {
			c.logger.Debug("Saving gps state")
			if err := conn.storage.Put(ctx, conn.key, repositories.FieldGPS, position); err != nil {
				c.logger.Error("Failed to save gps state: %v", err)
			}
		},
	})

	c.lock.Lock()
	conn.tracker = tracker
	c.lock.Unlock()
	go tracker.Start(conn.ctx)
	return nil
}

// Position returns the last position seen by TrackPosition.
func (c *Client) Position() (types.Position, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if c.conn == nil || c.conn.tracker == nil {
		return types.Position{}, false
	}
	return c.conn.tracker.Current(), true
}
