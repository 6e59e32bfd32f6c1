package types

import "fmt"

// SessionKey scopes every persisted key and local file to one game, slot and seed.
type SessionKey struct {
	Game string
	Slot int
	Seed string
}

func (k SessionKey) String() string {
	return fmt.Sprintf("%s_%d_%s", k.Game, k.Slot, k.Seed)
}

// Field returns the namespaced key for one persisted field.
func (k SessionKey) Field(name string) string {
	return fmt.Sprintf("%s_%s", k.String(), name)
}

func (k SessionKey) IsZero() bool {
	return k == SessionKey{}
}
