package normalize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grantscope/usaspending-mcp/pkg/normalize"
	"github.com/grantscope/usaspending-mcp/pkg/upstream"
)

func completeRecord() upstream.RawAwardRecord {
	return upstream.RawAwardRecord{
		"Award ID":              "DE-EE0012345",
		"Recipient Name":        "SUNRISE SOLAR LLC",
		"Awarding Agency":       "Department of Energy",
		"Awarding Sub Agency":   "Office of Energy Efficiency",
		"Start Date":            "2023-11-15",
		"End Date":              "2026-11-14",
		"Award Amount":          1250000.5,
		"Award Type":            "project grant",
		"Description":           "COMMUNITY SOLAR DEPLOYMENT",
		"generated_internal_id": "ASST_NON_DE-EE0012345_8900",
	}
}

func TestNormalizeCompleteRecord(t *testing.T) {
	award, err := normalize.Normalize(completeRecord())
	require.NoError(t, err)

	assert.Equal(t, "DE-EE0012345", award.ID)
	assert.Equal(t, "SUNRISE SOLAR LLC", award.RecipientName)
	assert.Equal(t, "Department of Energy", award.AwardingAgency)
	assert.Equal(t, 1250000.5, award.Amount)
	assert.Equal(t, "2023-11-15", award.AwardDate)
	assert.Equal(t, "COMMUNITY SOLAR DEPLOYMENT", award.Description)
	assert.Equal(t, "https://www.usaspending.gov/award/ASST_NON_DE-EE0012345_8900", award.SourceURI)
}

func TestNormalizeIdempotent(t *testing.T) {
	raw := completeRecord()

	first, err := normalize.Normalize(raw)
	require.NoError(t, err)
	second, err := normalize.Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestNormalizeIgnoresUnknownFields(t *testing.T) {
	raw := completeRecord()
	raw["Brand New Upstream Field"] = map[string]any{"nested": true}
	raw["another_addition"] = 42.0

	award, err := normalize.Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "DE-EE0012345", award.ID)
}

func TestNormalizeNullOptionalFields(t *testing.T) {
	raw := completeRecord()
	raw["Description"] = nil
	raw["Start Date"] = nil

	award, err := normalize.Normalize(raw)
	require.NoError(t, err)
	assert.Empty(t, award.Description)
	assert.Empty(t, award.AwardDate)
}

func TestNormalizeSchemaMismatches(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(upstream.RawAwardRecord)
		wantField string
	}{
		{"missing award id", func(r upstream.RawAwardRecord) { delete(r, "Award ID") }, "Award ID"},
		{"null recipient", func(r upstream.RawAwardRecord) { r["Recipient Name"] = nil }, "Recipient Name"},
		{"missing agency", func(r upstream.RawAwardRecord) { delete(r, "Awarding Agency") }, "Awarding Agency"},
		{"amount retyped to string", func(r upstream.RawAwardRecord) { r["Award Amount"] = "1250000.5" }, "Award Amount"},
		{"null amount", func(r upstream.RawAwardRecord) { r["Award Amount"] = nil }, "Award Amount"},
		{"missing internal id", func(r upstream.RawAwardRecord) { delete(r, "generated_internal_id") }, "generated_internal_id"},
		{"description retyped", func(r upstream.RawAwardRecord) { r["Description"] = 7.0 }, "Description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := completeRecord()
			tt.mutate(raw)

			_, err := normalize.Normalize(raw)
			require.Error(t, err)

			var mismatch *normalize.SchemaMismatchError
			require.ErrorAs(t, err, &mismatch)
			assert.Equal(t, tt.wantField, mismatch.Field)
		})
	}
}

func TestAllStopsOnFirstMismatch(t *testing.T) {
	bad := completeRecord()
	delete(bad, "Award ID")
	records := []upstream.RawAwardRecord{completeRecord(), bad}

	_, err := normalize.All(records)
	require.Error(t, err)

	var mismatch *normalize.SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestAllPreservesOrder(t *testing.T) {
	first := completeRecord()
	second := completeRecord()
	second["Award ID"] = "DE-EE0099999"

	awards, err := normalize.All([]upstream.RawAwardRecord{first, second})
	require.NoError(t, err)
	require.Len(t, awards, 2)
	assert.Equal(t, "DE-EE0012345", awards[0].ID)
	assert.Equal(t, "DE-EE0099999", awards[1].ID)
}

func TestSourceURIEscapesID(t *testing.T) {
	raw := completeRecord()
	raw["generated_internal_id"] = "CONT AWD/1"

	award, err := normalize.Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "https://www.usaspending.gov/award/CONT%20AWD%2F1", award.SourceURI)
}
