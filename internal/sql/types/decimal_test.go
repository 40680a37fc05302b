package types

import (
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onisimchukv/ksql/internal/testutil"
)

func TestDecimalOf(t *testing.T) {
	tests := []struct {
		precision int
		scale     int
		message   string
	}{
		{0, 2, "DECIMAL precision must be >= 1: 0"},
		{10, -1, "DECIMAL scale must be >= 0: -1"},
		{2, 3, "DECIMAL precision must be >= scale: 2 < 3"},
		{10, 2, ""},
		{1, 0, ""},
		{5, 5, ""},
	}

	for _, tt := range tests {
		d, err := DecimalOf(tt.precision, tt.scale)
		if tt.message != "" {
			testutil.AssertPlanError(t, err, tt.message)
			assert.Nil(t, d)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.precision, d.Precision())
		assert.Equal(t, tt.scale, d.Scale())
	}
}

func TestMustDecimalPanics(t *testing.T) {
	assert.Panics(t, func() { MustDecimal(2, 3) })
}

func TestDecimalValidation(t *testing.T) {
	typ := MustDecimal(4, 1)

	tests := []struct {
		name    string
		value   any
		message string
	}{
		{"wrong base kind", int64(10), "Expected DECIMAL, got BIGINT"},
		{"double is not a decimal", 12.5, "Expected DECIMAL, got DOUBLE"},
		{"precision too large", "1234.5", "Expected DECIMAL(4, 1), got precision 5"},
		{"scale too large", "12.50", "Expected DECIMAL(4, 1), got scale 2"},
		{"exact fit", "123.0", ""},
		{"negative exact fit", "-123.0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value := tt.value
			if s, ok := value.(string); ok {
				dec, err := ParseDecimal(s)
				require.NoError(t, err)
				value = dec
			}
			err := typ.ValidateValue(value)
			if tt.message == "" {
				assert.NoError(t, err)
				return
			}
			testutil.AssertDataError(t, err, tt.message)
		})
	}
}

func TestDecimalValueByValue(t *testing.T) {
	dec, err := ParseDecimal("123.0")
	require.NoError(t, err)
	assert.NoError(t, MustDecimal(4, 1).ValidateValue(*dec))
}

func TestDecimalPrecisionAndScale(t *testing.T) {
	tests := []struct {
		text      string
		precision int
		scale     int
	}{
		{"1234.5", 5, 1},
		{"12.50", 4, 2},
		{"0.001", 1, 3},
		{"100", 3, 0},
	}
	for _, tt := range tests {
		dec, _, err := apd.NewFromString(tt.text)
		require.NoError(t, err)
		assert.Equal(t, tt.precision, DecimalPrecision(dec), tt.text)
		assert.Equal(t, tt.scale, DecimalScale(dec), tt.text)
	}
}

func TestParseDecimalRejectsGarbage(t *testing.T) {
	_, err := ParseDecimal("twelve")
	testutil.AssertDataError(t, err, `invalid input syntax for type DECIMAL: "twelve"`)
}
