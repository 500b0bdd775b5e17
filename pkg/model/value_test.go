// pkg/model/value_test.go
package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNull(t *testing.T) {
	var strPtr *string
	assert.True(t, IsNull(nil))
	assert.True(t, IsNull(strPtr))
	assert.False(t, IsNull(""))
	assert.False(t, IsNull(float64(0)))
}

func TestToString(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"nil becomes empty", nil, ""},
		{"string passes through", "hello", "hello"},
		{"bytes convert", []byte("raw"), "raw"},
		{"whole float has no exponent", float64(75000), "75000"},
		{"fractional float keeps digits", float64(0.8), "0.8"},
		{"int formats", int64(42), "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToString(tt.value))
		})
	}
}

func TestToFloat(t *testing.T) {
	got, err := ToFloat("  120000.5 ")
	require.NoError(t, err)
	assert.Equal(t, 120000.5, got)

	got, err = ToFloat(int64(55))
	require.NoError(t, err)
	assert.Equal(t, float64(55), got)

	_, err = ToFloat(nil)
	assert.Error(t, err)

	_, err = ToFloat("not a number")
	assert.Error(t, err)
}

func TestToInt(t *testing.T) {
	got, err := ToInt(float64(95000))
	require.NoError(t, err)
	assert.Equal(t, int64(95000), got)

	// Fractional floats do not silently truncate
	_, err = ToInt(float64(95000.5))
	assert.Error(t, err)

	got, err = ToInt("1001")
	require.NoError(t, err)
	assert.Equal(t, int64(1001), got)

	_, err = ToInt("")
	assert.Error(t, err)
}

func TestIsNumeric(t *testing.T) {
	assert.True(t, IsNumeric(float64(1.5)))
	assert.True(t, IsNumeric(int64(3)))
	assert.False(t, IsNumeric("1.5"))
	assert.False(t, IsNumeric(nil))
}
