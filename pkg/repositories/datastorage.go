package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cbodonnell/apclient/pkg/types"
)

const (
	FieldGameState    = "GameState"
	FieldCustomValues = "CustomValues"
	FieldGPS          = "GPS"
)

// KeyValue is the slice of the remote session used for persistence.
type KeyValue interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	Set(ctx context.Context, key string, value any) error
}

// DataStorageStore persists the game state in the service's key-value data
// storage, one key per field, each written with a replace operation.
type DataStorageStore struct {
	kv KeyValue
}

func NewDataStorageStore(kv KeyValue) *DataStorageStore {
	return &DataStorageStore{kv: kv}
}

func (s *DataStorageStore) Name() string {
	return "datastorage"
}

func (s *DataStorageStore) LoadGameState(ctx context.Context, key types.SessionKey) (*types.GameState, error) {
	raw, ok, err := s.get(ctx, key, FieldGameState)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ErrNotFound{}
	}
	gameState := &types.GameState{}
	if err := json.Unmarshal(raw, gameState); err != nil {
		return nil, fmt.Errorf("failed to deserialize %s: %v", key.Field(FieldGameState), err)
	}

	rawCustom, ok, err := s.get(ctx, key, FieldCustomValues)
	if err != nil {
		return nil, err
	}
	if ok {
		custom := map[string]json.RawMessage{}
		if err := json.Unmarshal(rawCustom, &custom); err != nil {
			return nil, fmt.Errorf("failed to deserialize %s: %v", key.Field(FieldCustomValues), err)
		}
		for k, v := range custom {
			gameState.CustomValues[k] = types.CompactValue(v)
		}
	}
	return gameState, nil
}

func (s *DataStorageStore) SaveGameState(ctx context.Context, key types.SessionKey, gameState *types.GameState) error {
	withoutCustom := gameState.Copy()
	custom := withoutCustom.CustomValues
	withoutCustom.CustomValues = nil

	if err := s.Put(ctx, key, FieldGameState, withoutCustom); err != nil {
		return err
	}
	return s.Put(ctx, key, FieldCustomValues, custom)
}

// Put replaces one field. The value is wrapped in an object keyed by the
// field name, the layout existing clients of the service read.
func (s *DataStorageStore) Put(ctx context.Context, key types.SessionKey, field string, value any) error {
	if err := s.kv.Set(ctx, key.Field(field), map[string]any{field: value}); err != nil {
		return fmt.Errorf("failed to set %s: %v", key.Field(field), err)
	}
	return nil
}

func (s *DataStorageStore) get(ctx context.Context, key types.SessionKey, field string) (json.RawMessage, bool, error) {
	raw, ok, err := s.kv.Get(ctx, key.Field(field))
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %v", key.Field(field), err)
	}
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return nil, false, nil
	}
	envelope := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, false, fmt.Errorf("failed to deserialize %s: %v", key.Field(field), err)
	}
	value, ok := envelope[field]
	if !ok || string(value) == "null" {
		return nil, false, nil
	}
	return value, true, nil
}

func (s *DataStorageStore) Close(ctx context.Context) error {
	return nil
}
