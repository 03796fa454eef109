// Package mcp exposes the triage pipeline over the Model Context
// Protocol: ad-hoc classification, batch processing, errand linking,
// forward rendering, search and the per-errand case log as tools, plus
// the category list as a resource. Stdio transport only.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vetbolaget/triage/internal/chrono"
	"github.com/vetbolaget/triage/internal/classify"
	"github.com/vetbolaget/triage/internal/connect"
	"github.com/vetbolaget/triage/internal/extract"
	"github.com/vetbolaget/triage/internal/forward"
	"github.com/vetbolaget/triage/internal/normalize"
	"github.com/vetbolaget/triage/internal/pipeline"
	"github.com/vetbolaget/triage/internal/rules"
	"github.com/vetbolaget/triage/internal/search"
	"github.com/vetbolaget/triage/internal/store"
)

// ServerConfig holds the collaborators the tools need.
type ServerConfig struct {
	Catalog *rules.Catalog
	Engine  *pipeline.Engine
	Store   store.Store
	Chrono  *chrono.Builder
	Version string
}

// dbMu serializes tool calls that touch the database. The mcp-go
// library dispatches handlers concurrently and SQLite supports only one
// writer at a time.
var dbMu sync.Mutex

// NewServer creates a configured MCP server with all triage tools.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"Triage",
		ver,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(true, false),
	)

	registerClassifyTool(s, cfg.Catalog)
	registerProcessTool(s, cfg.Engine)
	registerConnectTool(s, cfg.Store)
	registerForwardTool(s, cfg.Catalog, cfg.Store)
	registerCaseLogTool(s, cfg.Chrono)
	registerSearchTool(s, cfg.Store)
	registerCategoriesResource(s)

	return s
}

func registerClassifyTool(s *server.MCPServer, catalog *rules.Catalog) {
	tool := mcp.NewTool("triage_classify",
		mcp.WithDescription("Classify one email without storing it. Returns the category, extracted fields and suggested actions."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("from",
			mcp.Description("Sender address"),
		),
		mcp.WithString("subject",
			mcp.Description("Email subject"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Email body, plain text or HTML"),
		),
	)

	normalizer := normalize.New(catalog)
	extractor := extract.New(catalog)
	categorizer := classify.New(catalog)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		body, err := req.RequireString("body")
		if err != nil {
			return mcp.NewToolResultError("body is required"), nil
		}
		var from, subject string
		if v, err := req.RequireString("from"); err == nil {
			from = v
		}
		if v, err := req.RequireString("subject"); err == nil {
			subject = v
		}

		normalized := normalizer.Normalize(from, subject, body, "")
		result := categorizer.Categorize(ctx, normalized)
		fields := extractor.Extract(normalized, "")

		out := map[string]any{
			"category": result.Category,
			"source":   result.Source,
			"actions":  classify.Suggestions(result.Category),
			"fields": map[string]any{
				"reference":        fields.Reference,
				"insurance_number": fields.InsuranceNumber,
				"damage_number":    fields.DamageNumber,
				"animal_name":      fields.EffectiveAnimalName(),
				"owner_name":       fields.OwnerName,
			},
		}
		if fields.SettlementAmount != nil {
			out["settlement_kr"] = fields.SettlementAmount.Kronor()
		}
		if fields.TotalAmount != nil {
			out["total_kr"] = fields.TotalAmount.Kronor()
		}

		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("marshaling result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerProcessTool(s *server.MCPServer, engine *pipeline.Engine) {
	tool := mcp.NewTool("triage_process",
		mcp.WithDescription("Run the triage pipeline over unprocessed stored emails. Returns processed and failed counts."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of emails to process (default: 100)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		limit := 100
		if v, err := req.RequireFloat("limit"); err == nil && int(v) > 0 {
			limit = int(v)
		}
		processed, failed, err := engine.ProcessBatch(ctx, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("processing batch: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("{\"processed\": %d, \"failed\": %d}", processed, failed)), nil
	})
}

func registerConnectTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("triage_connect",
		mcp.WithDescription("Find the errand a set of extracted claim fields would connect to, without storing anything. Reference beats insurance+damage pair beats animal+owner name."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("reference",
			mcp.Description("Claim reference, e.g. DR-12345"),
		),
		mcp.WithString("insurance_number",
			mcp.Description("Insurance number"),
		),
		mcp.WithString("damage_number",
			mcp.Description("Damage number"),
		),
		mcp.WithString("animal_name",
			mcp.Description("Animal name"),
		),
		mcp.WithString("owner_name",
			mcp.Description("Owner name"),
		),
	)

	connector := connect.New()

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		var fields extract.Fields
		if v, err := req.RequireString("reference"); err == nil {
			fields.Reference = v
		}
		if v, err := req.RequireString("insurance_number"); err == nil {
			fields.InsuranceNumber = v
		}
		if v, err := req.RequireString("damage_number"); err == nil {
			fields.DamageNumber = v
		}
		if v, err := req.RequireString("animal_name"); err == nil {
			fields.AnimalName = v
		}
		if v, err := req.RequireString("owner_name"); err == nil {
			fields.OwnerName = v
		}

		now := time.Now().UTC()
		rows, err := st.CandidateErrands(ctx, now, pipeline.DefaultCandidateWindow)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("loading candidate errands: %v", err)), nil
		}
		candidates := make([]connect.Errand, len(rows))
		for i, r := range rows {
			candidates[i] = connect.Errand{
				ID:              r.ID,
				Reference:       r.Reference,
				InsuranceNumber: r.InsuranceNumber,
				DamageNumber:    r.DamageNumber,
				AnimalName:      r.AnimalName,
				OwnerName:       r.OwnerName,
				CreatedAt:       r.CreatedAt,
			}
		}

		decision := connector.Connect(connect.EmailMeta{CreatedAt: now}, fields, candidates)
		out := map[string]any{
			"connected":  decision.Connected,
			"matched_on": decision.MatchedOn,
		}
		if decision.Connected {
			out["errand_id"] = decision.ErrandID
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("marshaling result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerForwardTool(s *server.MCPServer, catalog *rules.Catalog, st store.Store) {
	tool := mcp.NewTool("triage_forward",
		mcp.WithDescription("Render the forward message for a processed, connected email from the per-category template. Returns the recipient, subject and HTML body; nothing is sent."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithNumber("email_id",
			mcp.Required(),
			mcp.Description("Stored email id"),
		),
		mcp.WithString("admin",
			mcp.Description("Handler name for the signature"),
		),
		mcp.WithString("info",
			mcp.Description("Optional extra paragraph inserted into the body"),
		),
	)

	builder := forward.New(catalog)
	normalizer := normalize.New(catalog)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		idVal, err := req.RequireFloat("email_id")
		if err != nil || int64(idVal) <= 0 {
			return mcp.NewToolResultError("email_id is required"), nil
		}
		var admin, info string
		if v, err := req.RequireString("admin"); err == nil {
			admin = v
		}
		if v, err := req.RequireString("info"); err == nil {
			info = v
		}

		email, err := st.GetEmail(ctx, int64(idVal))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("loading email: %v", err)), nil
		}
		if email.ProcessedAt == nil {
			return mcp.NewToolResultError(fmt.Sprintf("email %d has not been triaged yet", email.ID)), nil
		}
		if email.ErrandID == nil {
			return mcp.NewToolResultError(fmt.Sprintf("email %d is not connected to an errand", email.ID)), nil
		}
		errand, err := st.GetErrand(ctx, *email.ErrandID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("loading errand: %v", err)), nil
		}

		category, _ := classify.Effective(rules.Category(email.Category), rules.Category(email.CorrectedCategory))
		msg, err := builder.Build(category, rules.SenderRole(email.SenderRole), forward.Case{
			Reference:   errand.Reference,
			InsurerName: errand.InsurerName,
			ClinicName:  errand.ClinicName,
			ClinicEmail: errand.ClinicEmail,
			OwnerName:   errand.OwnerName,
			AdminName:   admin,
		}, normalizer.TrimQuoted(email.TextPlain), info)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("building forward: %v", err)), nil
		}

		data, err := json.MarshalIndent(map[string]any{
			"message_id": msg.MessageID,
			"to":         msg.To,
			"subject":    msg.Subject,
			"body_html":  msg.BodyHTML,
			"category":   msg.Category,
		}, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("marshaling result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerCaseLogTool(s *server.MCPServer, builder *chrono.Builder) {
	tool := mcp.NewTool("triage_case_log",
		mcp.WithDescription("Return an errand's chronological case log: connected emails, chat, comments and transactions, oldest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithNumber("errand_id",
			mcp.Required(),
			mcp.Description("Errand id"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		idVal, err := req.RequireFloat("errand_id")
		if err != nil || int64(idVal) <= 0 {
			return mcp.NewToolResultError("errand_id is required"), nil
		}

		group, err := builder.Build(ctx, int64(idVal))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("building case log: %v", err)), nil
		}
		data, err := json.MarshalIndent(group, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("marshaling case log: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerSearchTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("triage_search",
		mcp.WithDescription("Search stored emails by free text. Matches subject, body, sender and extracted identifiers."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search text"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 20)"),
		),
	)

	searcher := search.New(st)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}
		limit := 20
		if v, err := req.RequireFloat("limit"); err == nil && int(v) > 0 {
			limit = int(v)
		}

		results, err := searcher.Search(ctx, query, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("searching emails: %v", err)), nil
		}
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("marshaling results: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerCategoriesResource(s *server.MCPServer) {
	resource := mcp.NewResource(
		"triage://categories",
		"Triage categories",
		mcp.WithResourceDescription("The category list in evaluation order, with suggested actions per category."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		type entry struct {
			Category rules.Category `json:"category"`
			Actions  []rules.Action `json:"actions,omitempty"`
		}
		entries := make([]entry, 0, len(rules.CategoryOrder))
		for _, c := range rules.CategoryOrder {
			entries = append(entries, entry{Category: c, Actions: rules.ActionSuggestions[c]})
		}
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling categories: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}

// ServeStdio runs the server over stdio until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
