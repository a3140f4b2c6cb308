// Package normalize projects raw USAspending award records into the stable
// output schema returned to MCP clients.
//
// The projection is defensive in both directions: upstream fields this
// package does not know about are ignored, while a missing or retyped field
// it depends on is a reported SchemaMismatchError rather than a silent null.
package normalize

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/grantscope/usaspending-mcp/pkg/query"
	"github.com/grantscope/usaspending-mcp/pkg/upstream"
)

// AwardBaseURL prefixes the public award page for a generated internal ID.
const AwardBaseURL = "https://www.usaspending.gov/award/"

// NormalizedAward is the per-award shape returned to MCP clients. AwardDate
// and Description are empty strings when the upstream value is null; every
// other field is populated or the record fails normalization.
type NormalizedAward struct {
	ID             string  `json:"id"`
	RecipientName  string  `json:"recipientName"`
	AwardingAgency string  `json:"awardingAgency"`
	Amount         float64 `json:"amount"`
	AwardDate      string  `json:"awardDate"`
	Description    string  `json:"description"`
	SourceURI      string  `json:"sourceUri"`
}

// SchemaMismatchError reports an upstream record that no longer matches the
// expected schema: a required field is absent, null, or of an unexpected
// type. It signals an upstream contract change, not a user error.
type SchemaMismatchError struct {
	Field  string
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("upstream field %q: %s", e.Field, e.Reason)
}

// Normalize projects one raw award record into a NormalizedAward.
func Normalize(raw upstream.RawAwardRecord) (*NormalizedAward, error) {
	id, err := requireString(raw, query.FieldAwardID)
	if err != nil {
		return nil, err
	}
	recipient, err := requireString(raw, query.FieldRecipientName)
	if err != nil {
		return nil, err
	}
	agency, err := requireString(raw, query.FieldAwardingAgency)
	if err != nil {
		return nil, err
	}
	amount, err := requireNumber(raw, query.FieldAwardAmount)
	if err != nil {
		return nil, err
	}
	internalID, err := requireString(raw, query.FieldInternalID)
	if err != nil {
		return nil, err
	}

	awardDate, err := optionalString(raw, query.FieldStartDate)
	if err != nil {
		return nil, err
	}
	description, err := optionalString(raw, query.FieldDescription)
	if err != nil {
		return nil, err
	}

	return &NormalizedAward{
		ID:             id,
		RecipientName:  recipient,
		AwardingAgency: agency,
		Amount:         amount,
		AwardDate:      awardDate,
		Description:    description,
		SourceURI:      AwardBaseURL + url.PathEscape(internalID),
	}, nil
}

// All normalizes every record in order, failing on the first mismatch.
func All(records []upstream.RawAwardRecord) ([]NormalizedAward, error) {
	awards := make([]NormalizedAward, 0, len(records))
	for _, raw := range records {
		award, err := Normalize(raw)
		if err != nil {
			return nil, err
		}
		awards = append(awards, *award)
	}
	return awards, nil
}

func requireString(raw upstream.RawAwardRecord, field string) (string, error) {
	v, ok := raw[field]
	if !ok {
		return "", &SchemaMismatchError{Field: field, Reason: "missing"}
	}
	if v == nil {
		return "", &SchemaMismatchError{Field: field, Reason: "null"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &SchemaMismatchError{Field: field, Reason: fmt.Sprintf("expected string, got %T", v)}
	}
	return s, nil
}

// optionalString tolerates an absent or null value but still rejects a type
// change, which would indicate an upstream schema shift.
func optionalString(raw upstream.RawAwardRecord, field string) (string, error) {
	v, ok := raw[field]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &SchemaMismatchError{Field: field, Reason: fmt.Sprintf("expected string, got %T", v)}
	}
	return s, nil
}

func requireNumber(raw upstream.RawAwardRecord, field string) (float64, error) {
	v, ok := raw[field]
	if !ok {
		return 0, &SchemaMismatchError{Field: field, Reason: "missing"}
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, &SchemaMismatchError{Field: field, Reason: "not a valid number"}
		}
		return f, nil
	case nil:
		return 0, &SchemaMismatchError{Field: field, Reason: "null"}
	default:
		return 0, &SchemaMismatchError{Field: field, Reason: fmt.Sprintf("expected number, got %T", v)}
	}
}
