package locations

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cbodonnell/apclient/pkg/memory"
)

// Checker is anything that can decide whether a location has been reached
// from the current contents of game memory.
type Checker interface {
	Meta() Meta
	Check(r memory.Reader) (bool, error)
}

// Meta identifies a location.
type Meta struct {
	ID       int64
	Name     string
	Category string
}

type CheckType int

// Values match the numeric encoding used by existing location data files.
const (
	CheckTypeBit CheckType = iota
	CheckTypeInt
	CheckTypeUInt
	CheckTypeByte
	CheckTypeShort
	CheckTypeFalseBit
	CheckTypeLong
	CheckTypeNibble
	CheckTypeAND
	CheckTypeOR
	CheckTypeUShort
	CheckTypeULong
)

var checkTypeNames = map[CheckType]string{
	CheckTypeBit:      "Bit",
	CheckTypeInt:      "Int",
	CheckTypeUInt:     "UInt",
	CheckTypeByte:     "Byte",
	CheckTypeShort:    "Short",
	CheckTypeFalseBit: "FalseBit",
	CheckTypeLong:     "Long",
	CheckTypeNibble:   "Nibble",
	CheckTypeAND:      "AND",
	CheckTypeOR:       "OR",
	CheckTypeUShort:   "UShort",
	CheckTypeULong:    "ULong",
}

func (t CheckType) String() string {
	if name, ok := checkTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("CheckType(%d)", int(t))
}

// IsComposite reports whether t combines child conditions.
func (t CheckType) IsComposite() bool {
	return t == CheckTypeAND || t == CheckTypeOR
}

func (t CheckType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *CheckType) UnmarshalJSON(b []byte) error {
	v, err := unmarshalEnum(b, len(checkTypeNames), func(s string) (int, bool) {
		for k, name := range checkTypeNames {
			if strings.EqualFold(name, s) {
				return int(k), true
			}
		}
		return 0, false
	})
	if err != nil {
		return fmt.Errorf("invalid check type: %v", err)
	}
	*t = CheckType(v)
	return nil
}

type CompareType int

const (
	CompareTypeMatch CompareType = iota
	CompareTypeGreaterThan
	CompareTypeLessThan
	CompareTypeRange
)

var compareTypeNames = map[CompareType]string{
	CompareTypeMatch:       "Match",
	CompareTypeGreaterThan: "GreaterThan",
	CompareTypeLessThan:    "LessThan",
	CompareTypeRange:       "Range",
}

func (t CompareType) String() string {
	if name, ok := compareTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("CompareType(%d)", int(t))
}

func (t CompareType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *CompareType) UnmarshalJSON(b []byte) error {
	v, err := unmarshalEnum(b, len(compareTypeNames), func(s string) (int, bool) {
		for k, name := range compareTypeNames {
			if strings.EqualFold(name, s) {
				return int(k), true
			}
		}
		return 0, false
	})
	if err != nil {
		return fmt.Errorf("invalid compare type: %v", err)
	}
	*t = CompareType(v)
	return nil
}

type NibblePosition int

const (
	NibblePositionLower NibblePosition = iota
	NibblePositionUpper
)

func (p NibblePosition) String() string {
	if p == NibblePositionUpper {
		return "Upper"
	}
	return "Lower"
}

func (p NibblePosition) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *NibblePosition) UnmarshalJSON(b []byte) error {
	v, err := unmarshalEnum(b, 2, func(s string) (int, bool) {
		switch strings.ToLower(s) {
		case "lower":
			return int(NibblePositionLower), true
		case "upper":
			return int(NibblePositionUpper), true
		}
		return 0, false
	})
	if err != nil {
		return fmt.Errorf("invalid nibble position: %v", err)
	}
	*p = NibblePosition(v)
	return nil
}

// unmarshalEnum accepts either the numeric value or the name of an enum.
func unmarshalEnum(b []byte, count int, byName func(string) (int, bool)) (int, error) {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		if n < 0 || n >= count {
			return 0, fmt.Errorf("%d out of range", n)
		}
		return n, nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return 0, err
	}
	v, ok := byName(s)
	if !ok {
		return 0, fmt.Errorf("unknown value %q", s)
	}
	return v, nil
}

// Address is a memory address. In JSON it may be a number, a decimal string
// or a 0x-prefixed hex string.
type Address uint64

func (a Address) String() string {
	return fmt.Sprintf("0x%X", uint64(a))
}

func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Address) UnmarshalJSON(b []byte) error {
	var n uint64
	if err := json.Unmarshal(b, &n); err == nil {
		*a = Address(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("invalid address: %v", err)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return fmt.Errorf("invalid address %q: %v", s, err)
	}
	*a = Address(v)
	return nil
}
