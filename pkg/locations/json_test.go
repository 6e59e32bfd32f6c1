package locations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const locationFile = `[
  {"Id": 1, "Name": "Door", "CheckType": 0, "Address": "0x0001A2B0", "AddressBit": 3},
  {"id": 2, "name": "Boss", "checkType": "Byte", "address": 4096, "compareType": "GreaterThan", "checkValue": "0x10"},
  {
    "id": 3,
    "name": "Either",
    "checkType": "OR",
    "conditions": [
      {"id": 0, "checkType": "Nibble", "address": "16", "nibblePosition": "Upper", "checkValue": "2"},
      {"id": 0, "checkType": "AND", "conditions": []}
    ]
  }
]`

func TestDecodeList(t *testing.T) {
	list, err := DecodeList([]byte(locationFile))
	require.NoError(t, err)
	require.Len(t, list, 3)

	door, ok := list[0].(*Location)
	require.True(t, ok)
	assert.Equal(t, Address(0x1A2B0), door.Address)
	assert.Equal(t, CheckTypeBit, door.CheckType)
	assert.Equal(t, 3, door.AddressBit)
	assert.Equal(t, Meta{ID: 1, Name: "Door"}, door.Meta())

	boss, ok := list[1].(*Location)
	require.True(t, ok)
	assert.Equal(t, CompareTypeGreaterThan, boss.CompareType)
	assert.Equal(t, Address(4096), boss.Address)

	either, ok := list[2].(*CompositeLocation)
	require.True(t, ok)
	assert.Equal(t, CheckTypeOR, either.CheckType)
	require.Len(t, either.Conditions, 2)
	nibble, ok := either.Conditions[0].(*Location)
	require.True(t, ok)
	assert.Equal(t, NibblePositionUpper, nibble.NibblePosition)
	_, ok = either.Conditions[1].(*CompositeLocation)
	assert.True(t, ok)
}

func TestEncodeList_roundTrip(t *testing.T) {
	list, err := DecodeList([]byte(locationFile))
	require.NoError(t, err)

	b, err := EncodeList(list)
	require.NoError(t, err)

	again, err := DecodeList(b)
	require.NoError(t, err)
	assert.Equal(t, list, again)
}

func TestDecode_invalidCheckType(t *testing.T) {
	_, err := Decode([]byte(`{"id": 1, "checkType": "Float"}`))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := &CompositeLocation{
		CheckType: CheckTypeAND,
		Conditions: []Checker{
			&Location{CheckType: CheckTypeBit},
			&Location{CheckType: CheckTypeByte, CheckValue: "1"},
		},
	}
	assert.NoError(t, Validate(valid))

	invalid := &CompositeLocation{
		CheckType: CheckTypeOR,
		Conditions: []Checker{
			&Location{ID: 1, CheckType: CheckTypeInt, CompareType: CompareTypeRange, RangeEndValue: "4"},
			&Location{ID: 2, CheckType: CheckTypeShort},
		},
	}
	err := Validate(invalid)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRangeBoundsMissing)
	assert.ErrorIs(t, err, ErrCheckValueMissing)
}
