package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Code string `json:"code"`
}

func TestMarshalDropsTrailingNewline(t *testing.T) {
	data, err := Marshal(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))
}

func TestDecodeRaw(t *testing.T) {
	value, err := DecodeRaw[sample](json.RawMessage(`{"code":"x"}`))
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, "x", value.Code)

	value, err = DecodeRaw[sample](json.RawMessage(" null "))
	require.NoError(t, err)
	assert.Nil(t, value)

	value, err = DecodeRaw[sample](nil)
	require.NoError(t, err)
	assert.Nil(t, value)

	_, err = DecodeRaw[sample](json.RawMessage(`[1,2]`))
	assert.Error(t, err)
}

func TestUnmarshalConfig(t *testing.T) {
	var target sample

	require.NoError(t, UnmarshalConfig(map[string]interface{}{"code": "from map"}, &target))
	assert.Equal(t, "from map", target.Code)

	require.NoError(t, UnmarshalConfig(&sample{Code: "from pointer"}, &target))
	assert.Equal(t, "from pointer", target.Code)

	require.NoError(t, UnmarshalConfig(sample{Code: "from value"}, &target))
	assert.Equal(t, "from value", target.Code)

	assert.Error(t, UnmarshalConfig[sample](nil, &target))
}

func TestStringBytesConversion(t *testing.T) {
	assert.Equal(t, []byte("abc"), StringToBytes("abc"))
	assert.Nil(t, StringToBytes(""))
	assert.Equal(t, "abc", BytesToString([]byte("abc")))
	assert.Equal(t, "", BytesToString(nil))
}
