package gridsearch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanValue(t *testing.T) {
	cases := []struct {
		value, field string
		want         string
		ok           bool
	}{
		{"Not Specified", "max_cap", "", false},
		{"  not found ", "vendor_name", "", false},
		{"The document does not contain any reference to a price drop date at all.", "price_drop_date", "", false},
		{"Acme Retail Pvt Ltd", "vendor_name", "Acme Retail Pvt Ltd", true},
		{`"Q3 Sellin Scheme"`, "scheme_name", "Q3 Sellin Scheme", true},
		{"Yes, no cap is mentioned", "max_cap", "Yes, no cap is mentioned", true},
		{"buy side", "scheme_type", "BUY_SIDE", true},
		{"SELL_SIDE (coupon)", "scheme_type", "SELL_SIDE", true},
		{"unclear", "scheme_type", "", false},
		{"PUC/FDC", "sub_type", "PUC_FDC", true},
		{"price protection", "sub_type", "PDC", true},
		{"super-coin", "sub_type", "SUPER_COIN", true},
		{"", "scheme_name", "", false},
	}
	for _, tc := range cases {
		got, ok := CleanValue(tc.value, tc.field)
		assert.Equal(t, tc.ok, ok, tc.value)
		assert.Equal(t, tc.want, got, tc.value)
	}
}

func TestValidateField(t *testing.T) {
	v, err := ValidateField("start_date", "05/03/2024")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", v)

	v, err = ValidateField("end_date", "March 31, 2024")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-31", v)

	v, err = ValidateField("start_date", "1 April 2024 to 30 June 2024")
	require.NoError(t, err)
	assert.Equal(t, "1 April 2024 to 30 June 2024", v)

	_, err = ValidateField("price_drop_date", "sometime soon")
	require.Error(t, err)

	v, err = ValidateField("remove_gst", "Y")
	require.NoError(t, err)
	assert.Equal(t, "Yes", v)
	v, err = ValidateField("scheme_document", nil)
	require.NoError(t, err)
	assert.Equal(t, "No", v)
	_, err = ValidateField("over_and_above", "maybe")
	require.Error(t, err)

	v, err = ValidateField("gst_rate", "18%")
	require.NoError(t, err)
	assert.InDelta(t, 18.0, v, 1e-9)
	_, err = ValidateField("gst_rate", 118.0)
	require.Error(t, err)
	v, err = ValidateField("max_cap", "₹1,50,000")
	require.NoError(t, err)
	assert.InDelta(t, 150000.0, v, 1e-9)
	_, err = ValidateField("max_cap", "-5")
	require.Error(t, err)

	v, err = ValidateField("sub_type", "puc-fdc")
	require.NoError(t, err)
	assert.Equal(t, "PUC_FDC", v)
	_, err = ValidateField("scheme_type", "OTHER")
	require.Error(t, err)

	_, err = ValidateField("duration", string(make([]byte, 101)))
	require.Error(t, err)

	v, err = ValidateField("discount_slab_type", 42.0)
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)
}

func TestValidateFields_KeepsRejectedValues(t *testing.T) {
	out, errs := ValidateFields(map[string]any{
		"start_date": "2024-01-01",
		"gst_rate":   "abc",
		"remove_gst": "no",
	})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "gst_rate")
	assert.Equal(t, "abc", out["gst_rate"])
	assert.Equal(t, "No", out["remove_gst"])
	assert.Equal(t, "2024-01-01", out["start_date"])
}
