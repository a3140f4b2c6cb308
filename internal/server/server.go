// Package server wires the search pipeline into an MCP server: it registers
// the tools, validates tool-call arguments, orchestrates query building,
// fetching, and normalization, and translates failures into client-facing
// error descriptors.
package server

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/grantscope/usaspending-mcp/pkg/filter"
)

// Version is the server version reported during the MCP handshake.
const Version = "1.0.0"

const instructions = `Search USA federal grant and financial assistance data from USAspending.gov.

Use search_grants to find awards by keyword, awarding agency, recipient,
fiscal year or date range, and amount range. Use list_award_types first if
you are unsure which award_type value to filter on. Use get_award_details
with IDs from search results (the sourceUri tail or the id field) to fetch
full award records.

Fiscal years follow the US federal calendar: FY2024 is 2023-10-01 through
2024-09-30.`

// Dependencies holds the collaborators for the MCP server.
type Dependencies struct {
	Client SearchClient
	Logger *zap.Logger
}

// Server is the MCP-facing entry point. Tool calls share the stateless
// upstream client and nothing else, so concurrent calls need no locking.
type Server struct {
	mcp    *mcpserver.MCPServer
	client SearchClient
	log    *zap.Logger
}

// New creates the server and registers its tools.
func New(deps *Dependencies) *Server {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		client: deps.Client,
		log:    log,
	}

	s.mcp = mcpserver.NewMCPServer(
		"usaspending",
		Version,
		mcpserver.WithInstructions(instructions),
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)
	s.registerTools()
	return s
}

// ServeStdio runs the server over stdin/stdout until EOF or a fatal
// transport error.
func (s *Server) ServeStdio() error {
	return mcpserver.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	searchTool := mcp.NewTool("search_grants",
		mcp.WithDescription("Search federal grant and financial assistance awards from USAspending.gov. Returns normalized award records sorted by amount, largest first."),
		mcp.WithString("keyword",
			mcp.Description("Free-text search over award descriptions; at least 3 characters. Multiple words act as separate search terms."),
		),
		mcp.WithString("award_type",
			mcp.Description("Award category to search. Defaults to grant."),
			mcp.Enum(awardTypeNames()...),
		),
		mcp.WithString("agency",
			mcp.Description("Awarding top-tier agency name, e.g. 'Department of Energy'."),
		),
		mcp.WithString("recipient",
			mcp.Description("Recipient name search text, e.g. 'University of Michigan'."),
		),
		mcp.WithNumber("fiscal_year",
			mcp.Description(fmt.Sprintf("US federal fiscal year, %d or later. Mutually exclusive with start_date/end_date.", filter.MinFiscalYear)),
		),
		mcp.WithString("start_date",
			mcp.Description("Range start, YYYY-MM-DD. Requires end_date."),
		),
		mcp.WithString("end_date",
			mcp.Description("Range end, YYYY-MM-DD. Requires start_date."),
		),
		mcp.WithNumber("min_amount",
			mcp.Description("Minimum award amount in dollars."),
		),
		mcp.WithNumber("max_amount",
			mcp.Description("Maximum award amount in dollars."),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Results per page, 1-%d. Defaults to %d.", filter.MaxLimit, filter.DefaultLimit)),
		),
	)
	s.mcp.AddTool(searchTool, s.handleSearchGrants)

	detailsTool := mcp.NewTool("get_award_details",
		mcp.WithDescription("Fetch full detail records for up to 10 award IDs (the generated internal IDs returned by search_grants)."),
		mcp.WithArray("award_ids",
			mcp.Required(),
			mcp.Description("Award IDs to fetch, e.g. ASST_NON_... or CONT_AWD_... values."),
			mcp.Items(map[string]any{"type": "string"}),
		),
	)
	s.mcp.AddTool(detailsTool, s.handleAwardDetails)

	typesTool := mcp.NewTool("list_award_types",
		mcp.WithDescription("List the accepted award_type values with their upstream type codes and descriptions. No network call."),
	)
	s.mcp.AddTool(typesTool, s.handleListAwardTypes)
}

func awardTypeNames() []string {
	names := make([]string, len(filter.AwardTypes))
	for i, t := range filter.AwardTypes {
		names[i] = string(t)
	}
	return names
}
