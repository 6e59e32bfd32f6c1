package repositories

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/cbodonnell/apclient/pkg/types"
	"github.com/klauspost/compress/zstd"
)

//go:embed migrations/*.sql
var migrations embed.FS

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	decoder, _ = zstd.NewReader(nil)
)

// encodeDocument serializes a game state as zstd-compressed JSON.
func encodeDocument(gameState *types.GameState) ([]byte, error) {
	b, err := json.Marshal(gameState)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize game state: %v", err)
	}
	return encoder.EncodeAll(b, nil), nil
}

func decodeDocument(b []byte) (*types.GameState, error) {
	raw, err := decoder.DecodeAll(b, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress game state: %v", err)
	}
	gameState := &types.GameState{}
	if err := json.Unmarshal(raw, gameState); err != nil {
		return nil, fmt.Errorf("failed to deserialize game state: %v", err)
	}
	return gameState, nil
}

func migration(name string) (string, error) {
	b, err := migrations.ReadFile("migrations/" + name)
	if err != nil {
		return "", fmt.Errorf("failed to read migration %s: %v", name, err)
	}
	return string(b), nil
}
