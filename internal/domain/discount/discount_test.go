package discount

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestSpecAmount(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
		base decimal.Decimal
		want decimal.Decimal
	}{
		{
			name: "percent 10% of 24.00",
			spec: Spec{Type: TypePercent, Value: d("10")},
			base: d("24.00"),
			want: d("2.40"),
		},
		{
			name: "percent rounds half up",
			spec: Spec{Type: TypePercent, Value: d("33.33")},
			base: d("10.01"),
			want: d("3.34"),
		},
		{
			name: "percent 100% equals base",
			spec: Spec{Type: TypePercent, Value: d("100")},
			base: d("25.50"),
			want: d("25.50"),
		},
		{
			name: "fixed below base",
			spec: Spec{Type: TypeFixed, Value: d("2.00")},
			base: d("10.00"),
			want: d("2.00"),
		},
		{
			name: "fixed capped at base",
			spec: Spec{Type: TypeFixed, Value: d("200")},
			base: d("99.99"),
			want: d("99.99"),
		},
		{
			name: "none gives zero",
			spec: None(),
			base: d("10.00"),
			want: decimal.Zero,
		},
		{
			name: "zero value gives zero",
			spec: Spec{Type: TypePercent, Value: decimal.Zero},
			base: d("10.00"),
			want: decimal.Zero,
		},
		{
			name: "negative value gives zero",
			spec: Spec{Type: TypeFixed, Value: d("-3")},
			base: d("10.00"),
			want: decimal.Zero,
		},
		{
			name: "zero base gives zero",
			spec: Spec{Type: TypePercent, Value: d("10")},
			base: decimal.Zero,
			want: decimal.Zero,
		},
		{
			name: "unknown type gives zero",
			spec: Spec{Type: Type("bogus"), Value: d("10")},
			base: d("10.00"),
			want: decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.spec.Amount(tt.base)
			assert.True(t, tt.want.Equal(got), "expected %s, got %s", tt.want, got)
		})
	}
}

// For any non-negative price and any spec, 0 <= amount <= price.
func TestSpecAmountBounds(t *testing.T) {
	prices := []string{"0", "0.01", "1", "9.99", "10.01", "100", "12345.67"}
	specs := []Spec{
		{Type: TypePercent, Value: d("0.01")},
		{Type: TypePercent, Value: d("50")},
		{Type: TypePercent, Value: d("99.99")},
		{Type: TypePercent, Value: d("100")},
		{Type: TypeFixed, Value: d("0.01")},
		{Type: TypeFixed, Value: d("5")},
		{Type: TypeFixed, Value: d("100000")},
		{Type: TypeFixed, Value: d("-1")},
		None(),
	}

	for _, p := range prices {
		base := d(p)
		for _, s := range specs {
			amt := s.Amount(base)
			assert.False(t, amt.IsNegative(), "spec %+v base %s: negative amount %s", s, p, amt)
			assert.True(t, amt.LessThanOrEqual(base.Round(2)),
				"spec %+v base %s: amount %s exceeds base", s, p, amt)
		}
	}
}

func TestPolicyValidatePercent(t *testing.T) {
	p := DefaultPolicy()

	require.NoError(t, p.ValidatePercent(d("50")))
	require.NoError(t, p.ValidatePercent(d("0.5")))

	err := p.ValidatePercent(d("50.01"))
	var rangeErr *PercentRangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Contains(t, err.Error(), "50")

	err = p.ValidatePercent(decimal.Zero)
	require.ErrorAs(t, err, &rangeErr)
}

func TestPolicyValidateFixed(t *testing.T) {
	p := DefaultPolicy()

	// cap = 50% of 10.00 = 5.00
	require.NoError(t, p.ValidateFixed(d("5.00"), d("10.00")))
	require.NoError(t, p.ValidateFixed(d("2.00"), d("10.00")))

	err := p.ValidateFixed(d("5.01"), d("10.00"))
	var capErr *FixedCapError
	require.ErrorAs(t, err, &capErr)
	assert.True(t, d("5.00").Equal(capErr.Cap), "cap %s", capErr.Cap)
	assert.Contains(t, err.Error(), "5.00")

	err = p.ValidateFixed(decimal.Zero, d("10.00"))
	require.ErrorAs(t, err, &capErr)
}

func TestPolicyValidateSpec(t *testing.T) {
	p := DefaultPolicy()

	// Clearing is always valid.
	require.NoError(t, p.ValidateSpec(None(), d("10")))

	// Cart-level fixed (no unit price) requires only a positive value.
	require.NoError(t, p.ValidateSpec(Spec{Type: TypeFixed, Value: d("500")}, d("-1")))
	require.ErrorIs(t, p.ValidateSpec(Spec{Type: TypeFixed, Value: decimal.Zero}, d("-1")), ErrValueNotPositive)

	// Unknown types are rejected with an explanatory message and a
	// matchable sentinel.
	err := p.ValidateSpec(Spec{Type: Type("bogus"), Value: d("1")}, d("10"))
	require.ErrorIs(t, err, ErrUnknownType)
	assert.Contains(t, err.Error(), "percent")
}
