package locations

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cbodonnell/apclient/pkg/memory"
)

var (
	// ErrRangeBoundsMissing is returned when a Range comparison lacks a bound.
	ErrRangeBoundsMissing = errors.New("range comparison requires both range start and range end values")
	// ErrCheckValueMissing is returned when a comparison has nothing to compare against.
	ErrCheckValueMissing = errors.New("comparison requires a check value")
	// ErrAddressBitOutOfRange is returned when a bit check names a bit outside 0..7.
	ErrAddressBitOutOfRange = errors.New("address bit must be between 0 and 7")
)

// ConfigError reports a location definition that can never be evaluated.
// It is returned at check time rather than being treated as false.
type ConfigError struct {
	LocationID int64
	Err        error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("location %d: %v", e.LocationID, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err was caused by an invalid location definition.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// Location is a leaf condition on a single value in game memory.
type Location struct {
	ID              int64          `json:"id"`
	Name            string         `json:"name"`
	Category        string         `json:"category,omitempty"`
	CheckType       CheckType      `json:"checkType"`
	Address         Address        `json:"address"`
	AddressBit      int            `json:"addressBit,omitempty"`
	NibblePosition  NibblePosition `json:"nibblePosition,omitempty"`
	CompareType     CompareType    `json:"compareType,omitempty"`
	CheckValue      string         `json:"checkValue,omitempty"`
	RangeStartValue string         `json:"rangeStartValue,omitempty"`
	RangeEndValue   string         `json:"rangeEndValue,omitempty"`
}

func (l *Location) Meta() Meta {
	return Meta{ID: l.ID, Name: l.Name, Category: l.Category}
}

// Check reads the configured value and compares it against the target.
func (l *Location) Check(r memory.Reader) (bool, error) {
	addr := uint64(l.Address)
	switch l.CheckType {
	case CheckTypeBit, CheckTypeFalseBit:
		if l.AddressBit < 0 || l.AddressBit > 7 {
			return false, l.configError(fmt.Errorf("%w: got %d", ErrAddressBitOutOfRange, l.AddressBit))
		}
		set, err := memory.ReadBit(r, addr, l.AddressBit)
		if err != nil {
			return false, err
		}
		if l.CheckType == CheckTypeFalseBit {
			set = !set
		}
		if strings.TrimSpace(l.CheckValue) == "" {
			return set, nil
		}
		var v uint64
		if set {
			v = 1
		}
		return l.compareUnsigned(v)
	case CheckTypeNibble:
		v, err := memory.ReadNibble(r, addr, l.NibblePosition == NibblePositionUpper)
		if err != nil {
			return false, err
		}
		return l.compareUnsigned(uint64(v))
	case CheckTypeByte:
		v, err := memory.ReadByte(r, addr)
		if err != nil {
			return false, err
		}
		return l.compareUnsigned(uint64(v))
	case CheckTypeShort:
		v, err := memory.ReadInt16(r, addr)
		if err != nil {
			return false, err
		}
		return l.compareSigned(int64(v))
	case CheckTypeUShort:
		v, err := memory.ReadUint16(r, addr)
		if err != nil {
			return false, err
		}
		return l.compareUnsigned(uint64(v))
	case CheckTypeInt:
		v, err := memory.ReadInt32(r, addr)
		if err != nil {
			return false, err
		}
		return l.compareSigned(int64(v))
	case CheckTypeUInt:
		v, err := memory.ReadUint32(r, addr)
		if err != nil {
			return false, err
		}
		return l.compareUnsigned(uint64(v))
	case CheckTypeLong:
		v, err := memory.ReadInt64(r, addr)
		if err != nil {
			return false, err
		}
		return l.compareSigned(v)
	case CheckTypeULong:
		v, err := memory.ReadUint64(r, addr)
		if err != nil {
			return false, err
		}
		return l.compareUnsigned(v)
	default:
		return false, l.configError(fmt.Errorf("check type %s is not valid for a leaf location", l.CheckType))
	}
}

func (l *Location) configError(err error) error {
	return &ConfigError{LocationID: l.ID, Err: err}
}

func (l *Location) compareSigned(v int64) (bool, error) {
	return compare(l, v, func(s string) (int64, error) {
		return strconv.ParseInt(strings.TrimSpace(s), 0, 64)
	})
}

func (l *Location) compareUnsigned(v uint64) (bool, error) {
	return compare(l, v, func(s string) (uint64, error) {
		return strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	})
}

type number interface {
	~int64 | ~uint64
}

// compare applies the location's comparison. GreaterThan and LessThan are
// inclusive, matching the semantics of existing location data.
func compare[T number](l *Location, v T, parse func(string) (T, error)) (bool, error) {
	target := func(s string) (T, error) {
		t, err := parse(s)
		if err != nil {
			return t, l.configError(fmt.Errorf("invalid value %q: %v", s, err))
		}
		return t, nil
	}

	if l.CompareType == CompareTypeRange {
		if strings.TrimSpace(l.RangeStartValue) == "" || strings.TrimSpace(l.RangeEndValue) == "" {
			return false, l.configError(ErrRangeBoundsMissing)
		}
		start, err := target(l.RangeStartValue)
		if err != nil {
			return false, err
		}
		end, err := target(l.RangeEndValue)
		if err != nil {
			return false, err
		}
		return start <= v && v <= end, nil
	}

	if strings.TrimSpace(l.CheckValue) == "" {
		return false, l.configError(ErrCheckValueMissing)
	}
	want, err := target(l.CheckValue)
	if err != nil {
		return false, err
	}
	switch l.CompareType {
	case CompareTypeMatch:
		return v == want, nil
	case CompareTypeGreaterThan:
		return v >= want, nil
	case CompareTypeLessThan:
		return v <= want, nil
	default:
		return false, l.configError(fmt.Errorf("unsupported compare type %s", l.CompareType))
	}
}
