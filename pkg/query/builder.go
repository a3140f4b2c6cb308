// Package query builds USAspending.gov search request bodies from validated
// filters. The field names and shapes here are the upstream API contract for
// POST /api/v2/search/spending_by_award/ and are kept in one reviewable
// mapping table rather than scattered through the client.
package query

import (
	"strings"

	"github.com/grantscope/usaspending-mcp/pkg/filter"
)

// Upstream response field names requested via UpstreamQuery.Fields. The
// normalizer projects these same keys out of each result record.
const (
	FieldAwardID        = "Award ID"
	FieldRecipientName  = "Recipient Name"
	FieldAwardingAgency = "Awarding Agency"
	FieldAwardingSub    = "Awarding Sub Agency"
	FieldStartDate      = "Start Date"
	FieldEndDate        = "End Date"
	FieldAwardAmount    = "Award Amount"
	FieldAwardType      = "Award Type"
	FieldDescription    = "Description"
	FieldInternalID     = "generated_internal_id"
)

// SearchPath is the award search endpoint, relative to the API base URL.
const SearchPath = "search/spending_by_award/"

// defaultFields is the projection requested for every search.
var defaultFields = []string{
	FieldAwardID,
	FieldRecipientName,
	FieldAwardingAgency,
	FieldAwardingSub,
	FieldStartDate,
	FieldEndDate,
	FieldAwardAmount,
	FieldAwardType,
	FieldDescription,
	FieldInternalID,
}

// awardTypeCodes maps the user-facing award type vocabulary onto the
// upstream assistance type codes.
var awardTypeCodes = map[filter.AwardType][]string{
	filter.AwardTypeGrant:                {"02", "03", "04"},
	filter.AwardTypeCooperativeAgreement: {"05"},
	filter.AwardTypeDirectPayment:        {"06", "10"},
	filter.AwardTypeLoan:                 {"07", "08"},
	filter.AwardTypeInsurance:            {"09"},
	filter.AwardTypeOther:                {"11"},
}

var awardTypeDescriptions = map[filter.AwardType]string{
	filter.AwardTypeGrant:                "Block, formula, and project grants",
	filter.AwardTypeCooperativeAgreement: "Cooperative agreements",
	filter.AwardTypeDirectPayment:        "Direct payments, with or without a specified use",
	filter.AwardTypeLoan:                 "Direct and guaranteed/insured loans",
	filter.AwardTypeInsurance:            "Insurance awards",
	filter.AwardTypeOther:                "Other financial assistance",
}

// AwardTypeInfo describes one entry of the award type mapping table.
type AwardTypeInfo struct {
	Type        filter.AwardType `json:"type"`
	Codes       []string         `json:"codes"`
	Description string           `json:"description"`
}

// AwardTypeTable returns the full award type mapping, in the vocabulary's
// documentation order. Exposed to clients through the list_award_types tool.
func AwardTypeTable() []AwardTypeInfo {
	table := make([]AwardTypeInfo, 0, len(filter.AwardTypes))
	for _, t := range filter.AwardTypes {
		table = append(table, AwardTypeInfo{
			Type:        t,
			Codes:       append([]string(nil), awardTypeCodes[t]...),
			Description: awardTypeDescriptions[t],
		})
	}
	return table
}

// TimePeriod is the upstream date range sub-object.
type TimePeriod struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Agency is the upstream agency filter sub-object.
type Agency struct {
	Type string `json:"type"`
	Tier string `json:"tier"`
	Name string `json:"name"`
}

// AwardAmount is the upstream amount range sub-object. A nil bound is open.
type AwardAmount struct {
	LowerBound *float64 `json:"lower_bound,omitempty"`
	UpperBound *float64 `json:"upper_bound,omitempty"`
}

// Filters is the upstream filter object.
type Filters struct {
	Keywords            []string      `json:"keywords,omitempty"`
	TimePeriod          []TimePeriod  `json:"time_period,omitempty"`
	AwardTypeCodes      []string      `json:"award_type_codes,omitempty"`
	Agencies            []Agency      `json:"agencies,omitempty"`
	RecipientSearchText []string      `json:"recipient_search_text,omitempty"`
	AwardAmounts        []AwardAmount `json:"award_amounts,omitempty"`
}

// UpstreamQuery is the wire-shaped request body for the award search
// endpoint. It is regenerated per page; only Page changes between pages.
type UpstreamQuery struct {
	Filters   Filters  `json:"filters"`
	Fields    []string `json:"fields"`
	Page      int      `json:"page"`
	Limit     int      `json:"limit"`
	Sort      string   `json:"sort"`
	Order     string   `json:"order"`
	Subawards bool     `json:"subawards"`
}

const dateLayout = "2006-01-02"

// Build maps a validated SearchFilter onto the upstream request shape for
// the given page. Build is pure: identical inputs yield identical queries,
// and the result shares no mutable state with previous calls.
func Build(f *filter.SearchFilter, page int) *UpstreamQuery {
	q := &UpstreamQuery{
		Fields:    append([]string(nil), defaultFields...),
		Page:      page,
		Limit:     f.Limit,
		Sort:      FieldAwardAmount,
		Order:     "desc",
		Subawards: false,
	}
	if q.Limit <= 0 {
		q.Limit = filter.DefaultLimit
	}
	if q.Limit > filter.MaxLimit {
		q.Limit = filter.MaxLimit
	}

	if f.Keyword != "" {
		q.Filters.Keywords = strings.Fields(f.Keyword)
	}

	q.Filters.AwardTypeCodes = append([]string(nil), awardTypeCodes[f.AwardType]...)

	if f.Agency != "" {
		q.Filters.Agencies = []Agency{{
			Type: "awarding",
			Tier: "toptier",
			Name: f.Agency,
		}}
	}

	if f.Recipient != "" {
		q.Filters.RecipientSearchText = []string{f.Recipient}
	}

	if f.Dates != nil {
		q.Filters.TimePeriod = []TimePeriod{{
			StartDate: f.Dates.Start.Format(dateLayout),
			EndDate:   f.Dates.End.Format(dateLayout),
		}}
	}

	if f.Amounts != nil {
		amount := AwardAmount{}
		if f.Amounts.Min != nil {
			v := *f.Amounts.Min
			amount.LowerBound = &v
		}
		if f.Amounts.Max != nil {
			v := *f.Amounts.Max
			amount.UpperBound = &v
		}
		q.Filters.AwardAmounts = []AwardAmount{amount}
	}

	return q
}

// NextPage returns a copy of q pointing at the given page. Everything except
// the page number is preserved.
func NextPage(q *UpstreamQuery, page int) *UpstreamQuery {
	next := *q
	next.Page = page
	return &next
}
