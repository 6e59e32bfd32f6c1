package locations

import (
	"fmt"

	"github.com/cbodonnell/apclient/pkg/memory"
)

// CompositeLocation combines child conditions with AND or OR.
// Conditions form a tree; cycles are not detected.
type CompositeLocation struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Category   string    `json:"category,omitempty"`
	CheckType  CheckType `json:"checkType"`
	Conditions []Checker `json:"conditions"`
}

func (c *CompositeLocation) Meta() Meta {
	return Meta{ID: c.ID, Name: c.Name, Category: c.Category}
}

// Check evaluates children in order and short-circuits.
// An empty composite is always satisfied.
func (c *CompositeLocation) Check(r memory.Reader) (bool, error) {
	if len(c.Conditions) == 0 {
		return true, nil
	}

	switch c.CheckType {
	case CheckTypeAND:
		for _, condition := range c.Conditions {
			ok, err := condition.Check(r)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case CheckTypeOR:
		for _, condition := range c.Conditions {
			ok, err := condition.Check(r)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, &ConfigError{
			LocationID: c.ID,
			Err:        fmt.Errorf("logical operator %s is not supported", c.CheckType),
		}
	}
}
