// Package filter defines the accepted search arguments for the award search
// tools and validates raw tool-call arguments into a typed SearchFilter.
//
// Validation is fail-closed: argument names outside the schema are rejected
// rather than ignored, so a misspelled filter surfaces as an error instead of
// an unintentionally broad result set.
package filter

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// AwardType is the user-facing award category vocabulary. Each value expands
// to one or more upstream award type codes (see the query package).
type AwardType string

const (
	AwardTypeGrant                AwardType = "grant"
	AwardTypeCooperativeAgreement AwardType = "cooperative_agreement"
	AwardTypeDirectPayment        AwardType = "direct_payment"
	AwardTypeLoan                 AwardType = "loan"
	AwardTypeInsurance            AwardType = "insurance"
	AwardTypeOther                AwardType = "other"
)

// AwardTypes lists every accepted award type value, in documentation order.
var AwardTypes = []AwardType{
	AwardTypeGrant,
	AwardTypeCooperativeAgreement,
	AwardTypeDirectPayment,
	AwardTypeLoan,
	AwardTypeInsurance,
	AwardTypeOther,
}

// Valid reports whether t is a recognized award type.
func (t AwardType) Valid() bool {
	for _, known := range AwardTypes {
		if t == known {
			return true
		}
	}
	return false
}

const (
	// DefaultLimit is the page size used when the caller does not set one.
	DefaultLimit = 25

	// MaxLimit is the upstream API's documented per-page maximum.
	MaxLimit = 100

	// MinKeywordLength is the shortest keyword the upstream API accepts.
	MinKeywordLength = 3

	// MinFiscalYear is the first fiscal year with usable USAspending data.
	MinFiscalYear = 2008

	dateLayout = "2006-01-02"
)

// DateRange is an inclusive start/end date pair. Invariant: Start <= End.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// AmountRange bounds the award amount. A nil bound is open.
// Invariant: if both bounds are set, Min <= Max.
type AmountRange struct {
	Min *float64
	Max *float64
}

// SearchFilter is the validated, immutable representation of a search
// request. It is constructed once per tool call by Validate and handed to
// the query builder unchanged.
type SearchFilter struct {
	Keyword   string
	AwardType AwardType
	Agency    string
	Recipient string
	Dates     *DateRange
	Amounts   *AmountRange
	Limit     int
}

// ValidationError names the offending argument and the violated constraint.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Field, e.Reason)
}

// knownFields is the complete argument schema for search_grants. Anything
// else is rejected.
var knownFields = map[string]struct{}{
	"keyword":     {},
	"award_type":  {},
	"agency":      {},
	"recipient":   {},
	"fiscal_year": {},
	"start_date":  {},
	"end_date":    {},
	"min_amount":  {},
	"max_amount":  {},
	"limit":       {},
}

// Validate checks raw tool-call arguments against the schema and returns a
// typed SearchFilter. It has no side effects and performs no I/O; every
// failure is a *ValidationError naming the field and constraint.
func Validate(args map[string]any) (*SearchFilter, error) {
	if err := rejectUnknown(args); err != nil {
		return nil, err
	}

	f := &SearchFilter{
		AwardType: AwardTypeGrant,
		Limit:     DefaultLimit,
	}

	keyword, ok, err := stringArg(args, "keyword")
	if err != nil {
		return nil, err
	}
	if ok {
		keyword = strings.TrimSpace(keyword)
		if len(keyword) < MinKeywordLength {
			return nil, &ValidationError{
				Field:  "keyword",
				Reason: fmt.Sprintf("must be at least %d characters", MinKeywordLength),
			}
		}
		f.Keyword = keyword
	}

	if raw, ok, err := stringArg(args, "award_type"); err != nil {
		return nil, err
	} else if ok {
		t := AwardType(raw)
		if !t.Valid() {
			return nil, &ValidationError{
				Field:  "award_type",
				Reason: fmt.Sprintf("must be one of %s", awardTypeList()),
			}
		}
		f.AwardType = t
	}

	if agency, ok, err := stringArg(args, "agency"); err != nil {
		return nil, err
	} else if ok {
		agency = strings.TrimSpace(agency)
		if agency == "" {
			return nil, &ValidationError{Field: "agency", Reason: "must not be empty"}
		}
		f.Agency = agency
	}

	if recipient, ok, err := stringArg(args, "recipient"); err != nil {
		return nil, err
	} else if ok {
		recipient = strings.TrimSpace(recipient)
		if recipient == "" {
			return nil, &ValidationError{Field: "recipient", Reason: "must not be empty"}
		}
		f.Recipient = recipient
	}

	dates, err := validateDates(args)
	if err != nil {
		return nil, err
	}
	f.Dates = dates

	amounts, err := validateAmounts(args)
	if err != nil {
		return nil, err
	}
	f.Amounts = amounts

	if limit, ok, err := intArg(args, "limit"); err != nil {
		return nil, err
	} else if ok {
		if limit < 1 || limit > MaxLimit {
			return nil, &ValidationError{
				Field:  "limit",
				Reason: fmt.Sprintf("must be between 1 and %d", MaxLimit),
			}
		}
		f.Limit = limit
	}

	if f.Keyword == "" && f.Agency == "" && f.Recipient == "" && f.Dates == nil && f.Amounts == nil {
		return nil, &ValidationError{
			Field:  "keyword",
			Reason: "at least one of keyword, agency, recipient, fiscal_year, start_date/end_date, or min_amount/max_amount is required",
		}
	}

	return f, nil
}

// FiscalYearRange expands a US federal fiscal year into its calendar range:
// FY N runs from October 1 of N-1 through September 30 of N.
func FiscalYearRange(year int) DateRange {
	return DateRange{
		Start: time.Date(year-1, time.October, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year, time.September, 30, 0, 0, 0, 0, time.UTC),
	}
}

func rejectUnknown(args map[string]any) error {
	var unknown []string
	for name := range args {
		if _, ok := knownFields[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return &ValidationError{
		Field:  unknown[0],
		Reason: "unrecognized argument",
	}
}

func validateDates(args map[string]any) (*DateRange, error) {
	fy, hasFY, err := intArg(args, "fiscal_year")
	if err != nil {
		return nil, err
	}

	startRaw, hasStart, err := stringArg(args, "start_date")
	if err != nil {
		return nil, err
	}
	endRaw, hasEnd, err := stringArg(args, "end_date")
	if err != nil {
		return nil, err
	}

	if hasFY && (hasStart || hasEnd) {
		return nil, &ValidationError{
			Field:  "fiscal_year",
			Reason: "cannot be combined with start_date/end_date",
		}
	}

	if hasFY {
		maxFY := currentFiscalYear() + 1
		if fy < MinFiscalYear || fy > maxFY {
			return nil, &ValidationError{
				Field:  "fiscal_year",
				Reason: fmt.Sprintf("must be between %d and %d", MinFiscalYear, maxFY),
			}
		}
		r := FiscalYearRange(fy)
		return &r, nil
	}

	if hasStart != hasEnd {
		missing := "end_date"
		if hasEnd {
			missing = "start_date"
		}
		return nil, &ValidationError{
			Field:  missing,
			Reason: "start_date and end_date must be provided together",
		}
	}
	if !hasStart {
		return nil, nil
	}

	start, err := time.Parse(dateLayout, startRaw)
	if err != nil {
		return nil, &ValidationError{Field: "start_date", Reason: "must be a YYYY-MM-DD date"}
	}
	end, err := time.Parse(dateLayout, endRaw)
	if err != nil {
		return nil, &ValidationError{Field: "end_date", Reason: "must be a YYYY-MM-DD date"}
	}
	if start.After(end) {
		return nil, &ValidationError{Field: "start_date", Reason: "must not be after end_date"}
	}
	return &DateRange{Start: start, End: end}, nil
}

func validateAmounts(args map[string]any) (*AmountRange, error) {
	min, hasMin, err := numberArg(args, "min_amount")
	if err != nil {
		return nil, err
	}
	max, hasMax, err := numberArg(args, "max_amount")
	if err != nil {
		return nil, err
	}
	if !hasMin && !hasMax {
		return nil, nil
	}

	r := &AmountRange{}
	if hasMin {
		if min < 0 {
			return nil, &ValidationError{Field: "min_amount", Reason: "must not be negative"}
		}
		v := min
		r.Min = &v
	}
	if hasMax {
		if max < 0 {
			return nil, &ValidationError{Field: "max_amount", Reason: "must not be negative"}
		}
		v := max
		r.Max = &v
	}
	if hasMin && hasMax && min > max {
		return nil, &ValidationError{Field: "min_amount", Reason: "must not exceed max_amount"}
	}
	return r, nil
}

func stringArg(args map[string]any, name string) (string, bool, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return "", false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", false, &ValidationError{Field: name, Reason: "must be a string"}
	}
	return s, true, nil
}

// intArg accepts the numeric types a JSON decoder may produce and requires
// the value to be a whole number.
func intArg(args map[string]any, name string) (int, bool, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, false, &ValidationError{Field: name, Reason: "must be an integer"}
		}
		return int(v), true, nil
	default:
		return 0, false, &ValidationError{Field: name, Reason: "must be an integer"}
	}
}

func numberArg(args map[string]any, name string) (float64, bool, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, true, nil
	case int:
		return float64(v), true, nil
	case int64:
		return float64(v), true, nil
	default:
		return 0, false, &ValidationError{Field: name, Reason: "must be a number"}
	}
}

func awardTypeList() string {
	names := make([]string, len(AwardTypes))
	for i, t := range AwardTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// currentFiscalYear returns the federal fiscal year containing today.
func currentFiscalYear() int {
	now := time.Now().UTC()
	if now.Month() >= time.October {
		return now.Year() + 1
	}
	return now.Year()
}
