package locations

import (
	"encoding/json"
	"fmt"
)

// UnmarshalJSON decodes child conditions according to their check types.
func (c *CompositeLocation) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID         int64             `json:"id"`
		Name       string            `json:"name"`
		Category   string            `json:"category"`
		CheckType  CheckType         `json:"checkType"`
		Conditions []json.RawMessage `json:"conditions"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	conditions := make([]Checker, 0, len(raw.Conditions))
	for i, rc := range raw.Conditions {
		condition, err := Decode(rc)
		if err != nil {
			return fmt.Errorf("failed to decode condition %d of location %d: %v", i, raw.ID, err)
		}
		conditions = append(conditions, condition)
	}
	*c = CompositeLocation{
		ID:         raw.ID,
		Name:       raw.Name,
		Category:   raw.Category,
		CheckType:  raw.CheckType,
		Conditions: conditions,
	}
	return nil
}

// Decode decodes a single location definition. AND and OR check types
// produce a *CompositeLocation, everything else a *Location.
func Decode(b []byte) (Checker, error) {
	var head struct {
		CheckType CheckType `json:"checkType"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return nil, fmt.Errorf("failed to read check type: %v", err)
	}
	if head.CheckType.IsComposite() {
		composite := &CompositeLocation{}
		if err := json.Unmarshal(b, composite); err != nil {
			return nil, err
		}
		return composite, nil
	}
	location := &Location{}
	if err := json.Unmarshal(b, location); err != nil {
		return nil, err
	}
	return location, nil
}

// DecodeList decodes a JSON array of location definitions.
func DecodeList(b []byte) ([]Checker, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode location list: %v", err)
	}
	list := make([]Checker, 0, len(raw))
	for i, r := range raw {
		location, err := Decode(r)
		if err != nil {
			return nil, fmt.Errorf("failed to decode location %d: %v", i, err)
		}
		list = append(list, location)
	}
	return list, nil
}

// EncodeList encodes locations so that DecodeList restores them.
func EncodeList(list []Checker) ([]byte, error) {
	return json.MarshalIndent(list, "", "  ")
}
