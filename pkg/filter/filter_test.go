package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDefaults(t *testing.T) {
	f, err := Validate(map[string]any{"keyword": "solar energy"})
	require.NoError(t, err)

	assert.Equal(t, "solar energy", f.Keyword)
	assert.Equal(t, AwardTypeGrant, f.AwardType)
	assert.Equal(t, DefaultLimit, f.Limit)
	assert.Nil(t, f.Dates)
	assert.Nil(t, f.Amounts)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name      string
		args      map[string]any
		wantField string
	}{
		{"unknown field", map[string]any{"unknownField": "x"}, "unknownField"},
		{"unknown field alongside valid", map[string]any{"keyword": "solar", "kyeword": "solar"}, "kyeword"},
		{"empty args", map[string]any{}, "keyword"},
		{"keyword too short", map[string]any{"keyword": "ab"}, "keyword"},
		{"keyword wrong type", map[string]any{"keyword": 42.0}, "keyword"},
		{"bad award type", map[string]any{"keyword": "solar", "award_type": "contract"}, "award_type"},
		{"empty agency", map[string]any{"agency": "  "}, "agency"},
		{"empty recipient", map[string]any{"recipient": ""}, "recipient"},
		{"fiscal year too old", map[string]any{"fiscal_year": 1999.0}, "fiscal_year"},
		{"fractional fiscal year", map[string]any{"fiscal_year": 2023.5}, "fiscal_year"},
		{"fiscal year with dates", map[string]any{"fiscal_year": 2023.0, "start_date": "2023-01-01", "end_date": "2023-12-31"}, "fiscal_year"},
		{"start without end", map[string]any{"start_date": "2023-01-01"}, "end_date"},
		{"end without start", map[string]any{"end_date": "2023-12-31"}, "start_date"},
		{"malformed start date", map[string]any{"start_date": "01/02/2023", "end_date": "2023-12-31"}, "start_date"},
		{"malformed end date", map[string]any{"start_date": "2023-01-01", "end_date": "soon"}, "end_date"},
		{"start after end", map[string]any{"start_date": "2024-01-01", "end_date": "2023-01-01"}, "start_date"},
		{"negative min amount", map[string]any{"min_amount": -1.0}, "min_amount"},
		{"min above max", map[string]any{"min_amount": 100.0, "max_amount": 5.0}, "min_amount"},
		{"amount wrong type", map[string]any{"min_amount": "lots"}, "min_amount"},
		{"limit zero", map[string]any{"keyword": "solar", "limit": 0.0}, "limit"},
		{"limit above max", map[string]any{"keyword": "solar", "limit": 101.0}, "limit"},
		{"fractional limit", map[string]any{"keyword": "solar", "limit": 2.5}, "limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.args)
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestValidateFullFilter(t *testing.T) {
	f, err := Validate(map[string]any{
		"keyword":    "broadband infrastructure",
		"award_type": "cooperative_agreement",
		"agency":     "Department of Commerce",
		"recipient":  "University",
		"start_date": "2023-10-01",
		"end_date":   "2024-09-30",
		"min_amount": 10000.0,
		"max_amount": 5000000.0,
		"limit":      50.0,
	})
	require.NoError(t, err)

	assert.Equal(t, AwardTypeCooperativeAgreement, f.AwardType)
	assert.Equal(t, "Department of Commerce", f.Agency)
	assert.Equal(t, "University", f.Recipient)
	assert.Equal(t, 50, f.Limit)

	require.NotNil(t, f.Dates)
	assert.Equal(t, "2023-10-01", f.Dates.Start.Format("2006-01-02"))
	assert.Equal(t, "2024-09-30", f.Dates.End.Format("2006-01-02"))

	require.NotNil(t, f.Amounts)
	require.NotNil(t, f.Amounts.Min)
	require.NotNil(t, f.Amounts.Max)
	assert.Equal(t, 10000.0, *f.Amounts.Min)
	assert.Equal(t, 5000000.0, *f.Amounts.Max)
}

func TestValidateFiscalYear(t *testing.T) {
	f, err := Validate(map[string]any{"fiscal_year": 2024.0})
	require.NoError(t, err)

	require.NotNil(t, f.Dates)
	assert.Equal(t, time.Date(2023, time.October, 1, 0, 0, 0, 0, time.UTC), f.Dates.Start)
	assert.Equal(t, time.Date(2024, time.September, 30, 0, 0, 0, 0, time.UTC), f.Dates.End)
}

func TestValidateOpenAmountBounds(t *testing.T) {
	f, err := Validate(map[string]any{"min_amount": 1000000.0})
	require.NoError(t, err)
	require.NotNil(t, f.Amounts)
	require.NotNil(t, f.Amounts.Min)
	assert.Nil(t, f.Amounts.Max)

	f, err = Validate(map[string]any{"max_amount": 500.0})
	require.NoError(t, err)
	require.NotNil(t, f.Amounts)
	assert.Nil(t, f.Amounts.Min)
	require.NotNil(t, f.Amounts.Max)
}

func TestValidateIntArgsFromJSON(t *testing.T) {
	// JSON decoding hands integers to the handler as float64.
	f, err := Validate(map[string]any{"keyword": "solar", "limit": float64(10)})
	require.NoError(t, err)
	assert.Equal(t, 10, f.Limit)

	// Direct callers may pass native ints.
	f, err = Validate(map[string]any{"keyword": "solar", "limit": 10})
	require.NoError(t, err)
	assert.Equal(t, 10, f.Limit)
}

func TestFiscalYearRange(t *testing.T) {
	r := FiscalYearRange(2020)
	assert.Equal(t, time.Date(2019, time.October, 1, 0, 0, 0, 0, time.UTC), r.Start)
	assert.Equal(t, time.Date(2020, time.September, 30, 0, 0, 0, 0, time.UTC), r.End)
}

func TestValidationErrorMessageNamesField(t *testing.T) {
	_, err := Validate(map[string]any{"unknownField": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknownField")
	assert.Contains(t, err.Error(), "unrecognized")
}
