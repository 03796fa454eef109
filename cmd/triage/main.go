package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/vetbolaget/triage/internal/chrono"
	"github.com/vetbolaget/triage/internal/classify"
	"github.com/vetbolaget/triage/internal/config"
	"github.com/vetbolaget/triage/internal/ingest"
	"github.com/vetbolaget/triage/internal/llm"
	"github.com/vetbolaget/triage/internal/mcp"
	"github.com/vetbolaget/triage/internal/pipeline"
	"github.com/vetbolaget/triage/internal/reprocess"
	"github.com/vetbolaget/triage/internal/rules"
	"github.com/vetbolaget/triage/internal/search"
	"github.com/vetbolaget/triage/internal/similar"
	"github.com/vetbolaget/triage/internal/store"
)

const version = "0.1.0-dev"

func main() {
	// Best effort; a missing .env file is not an error.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	var err error
	switch os.Args[1] {
	case "process":
		err = runProcess(os.Args[2:])
	case "import":
		err = runImport(os.Args[2:])
	case "log":
		err = runLog(os.Args[2:])
	case "search":
		err = runSearch(os.Args[2:])
	case "correct":
		err = runCorrect(os.Args[2:])
	case "reprocess":
		err = runReprocess(os.Args[2:])
	case "serve-mcp":
		err = runServeMCP(os.Args[2:])
	case "catalog":
		err = runCatalog(os.Args[2:])
	case "config":
		err = runConfig(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("triage %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cliFlags is the flag subset shared by most subcommands.
type cliFlags struct {
	db      string
	catalog string
	llmFlag string
	embed   string
	minSim  string
	ref     string
	from    string
	to      string
	limit   int
	dryRun  bool
	rest    []string
}

func parseFlags(args []string) (cliFlags, error) {
	f := cliFlags{limit: 100}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		next := func() (string, error) {
			if i+1 >= len(args) {
				return "", fmt.Errorf("flag %s requires a value", arg)
			}
			i++
			return args[i], nil
		}
		var err error
		switch arg {
		case "--db":
			f.db, err = next()
		case "--catalog":
			f.catalog, err = next()
		case "--llm":
			f.llmFlag, err = next()
		case "--embed":
			f.embed, err = next()
		case "--min-similarity":
			f.minSim, err = next()
		case "--ref":
			f.ref, err = next()
		case "--from":
			f.from, err = next()
		case "--to":
			f.to, err = next()
		case "--dry-run":
			f.dryRun = true
		case "--limit":
			var v string
			if v, err = next(); err == nil {
				f.limit, err = strconv.Atoi(v)
			}
		default:
			if strings.HasPrefix(arg, "-") {
				return f, fmt.Errorf("unknown flag: %s", arg)
			}
			f.rest = append(f.rest, arg)
		}
		if err != nil {
			return f, err
		}
	}
	return f, nil
}

func resolve(f cliFlags) (config.ResolvedConfig, error) {
	return config.ResolveConfig(config.ResolveOptions{
		CLIDBPath:  f.db,
		CLICatalog: f.catalog,
		CLILLM:     f.llmFlag,
		CLIEmbed:   f.embed,
		CLIMinSim:  f.minSim,
	})
}

func loadCatalog(cfg config.ResolvedConfig) (*rules.Catalog, error) {
	if dir := cfg.CatalogDir.Value; dir != "" {
		return rules.LoadCatalogDir(dir)
	}
	return rules.NewCatalog()
}

func openStore(cfg config.ResolvedConfig) (store.Store, error) {
	return store.New(store.Config{DBPath: cfg.DBPath.Value})
}

// buildIndex builds the similarity index over the labeled corpus when an
// embedding provider is configured. Returns nil when similarity search
// is unavailable; the caller runs rules-only.
func buildIndex(ctx context.Context, cfg config.ResolvedConfig, st store.Store, log *zap.Logger) (*similar.Index, error) {
	if cfg.EmbedProvider.Value == "" {
		return nil, nil
	}
	embedCfg, err := similar.ParseEmbedFlag(cfg.EmbedProvider.Value)
	if err != nil {
		return nil, fmt.Errorf("parsing embed config: %w", err)
	}
	client, err := similar.NewClient(embedCfg)
	if err != nil {
		return nil, fmt.Errorf("creating embedding client: %w", err)
	}

	labeled, err := st.LabeledEmails(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("loading labeled corpus: %w", err)
	}
	examples := make([]similar.Example, 0, len(labeled))
	for _, e := range labeled {
		cat := e.CorrectedCategory
		if cat == "" {
			cat = e.Category
		}
		examples = append(examples, similar.Example{
			ID:       e.ID,
			Text:     e.Subject + "\n" + e.TextPlain,
			Category: rules.Category(cat),
		})
	}
	if len(examples) == 0 {
		return nil, nil
	}

	index := similar.NewIndex(client)
	if err := index.Build(ctx, examples); err != nil {
		log.Warn("similarity index unavailable", zap.Error(err))
		return nil, nil
	}
	return index, nil
}

// buildEngine wires the full pipeline, including the similarity
// fallback when an embedding provider is configured.
func buildEngine(ctx context.Context, cfg config.ResolvedConfig, catalog *rules.Catalog, st store.Store, log *zap.Logger) (*pipeline.Engine, error) {
	var opts []classify.Option
	index, err := buildIndex(ctx, cfg, st, log)
	if err != nil {
		return nil, err
	}
	if index != nil {
		opts = append(opts, classify.WithFallback(index))
	}
	if cfg.MinSimilarity.Value != "" {
		min, err := strconv.ParseFloat(cfg.MinSimilarity.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing min similarity: %w", err)
		}
		opts = append(opts, classify.WithMinConfidence(min))
	}

	categorizer := classify.New(catalog, opts...)
	return pipeline.New(catalog, categorizer, st, pipeline.WithLogger(log)), nil
}

func runProcess(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := resolve(f)
	if err != nil {
		return err
	}

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	engine, err := buildEngine(ctx, cfg, catalog, st, log)
	if err != nil {
		return err
	}

	processed, failed, err := engine.ProcessBatch(ctx, f.limit)
	if err != nil {
		return err
	}
	fmt.Printf("Processed %d emails (%d failed), catalog %s\n", processed, failed, catalog.Hash())
	return nil
}

func runImport(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	if len(f.rest) == 0 {
		return fmt.Errorf("usage: triage import <dir-or-file.eml> [--db <path>]")
	}
	cfg, err := resolve(f)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	im := ingest.New(st)
	ctx := context.Background()

	for _, path := range f.rest {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stating %s: %w", path, err)
		}
		if info.IsDir() {
			res, err := im.ImportDir(ctx, path)
			if err != nil {
				return err
			}
			fmt.Printf("%s: imported %d, skipped %d, failed %d\n", path, res.Imported, res.Skipped, res.Failed)
			continue
		}
		if err := im.ImportFile(ctx, path); err != nil {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", path, err)
			continue
		}
		fmt.Printf("%s: imported\n", path)
	}
	return nil
}

const logUsage = "usage: triage log <errand-id> | --ref <reference> | --from <YYYY-MM-DD> [--to <YYYY-MM-DD>] [--llm provider/model]"

func runLog(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	byID := len(f.rest) == 1
	byRef := f.ref != ""
	byRange := f.from != "" || f.to != ""
	if !byID && !byRef && !byRange {
		return fmt.Errorf(logUsage)
	}

	cfg, err := resolve(f)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	var provider llm.Provider
	if cfg.LLMProvider.Value != "" {
		llmCfg, err := llm.ParseProviderFlag(cfg.LLMProvider.Value)
		if err != nil {
			return err
		}
		llmCfg.APIKey = cfg.APIKeyForProvider(cfg.LLMProvider.Value).Value
		provider, err = llm.NewProvider(llmCfg)
		if err != nil {
			return err
		}
	}

	sqlStore, ok := st.(*store.SQLiteStore)
	if !ok {
		return fmt.Errorf("case log requires the SQLite store")
	}
	builder := chrono.New(sqlStore, provider)
	ctx := context.Background()

	switch {
	case byRef:
		group, err := builder.BuildByReference(ctx, f.ref)
		if err != nil {
			return err
		}
		printGroup(group)
	case byRange:
		from, to, err := parseLogRange(f.from, f.to)
		if err != nil {
			return err
		}
		groups, err := builder.BuildRange(ctx, from, to)
		if err != nil {
			return err
		}
		if len(groups) == 0 {
			fmt.Println("No errands in range.")
			return nil
		}
		for i, group := range groups {
			if i > 0 {
				fmt.Println()
			}
			printGroup(group)
		}
	default:
		errandID, err := strconv.ParseInt(f.rest[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid errand id %q", f.rest[0])
		}
		group, err := builder.Build(ctx, errandID)
		if err != nil {
			return err
		}
		printGroup(group)
	}
	return nil
}

// parseLogRange turns --from/--to day strings into an inclusive range.
// A missing --to means "up to now".
func parseLogRange(fromStr, toStr string) (time.Time, time.Time, error) {
	if fromStr == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("--to requires --from")
	}
	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --from date %q", fromStr)
	}
	to := time.Now().UTC()
	if toStr != "" {
		day, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to date %q", toStr)
		}
		to = day.Add(24*time.Hour - time.Second)
	}
	return from, to, nil
}

func printGroup(group *chrono.Group) {
	fmt.Printf("Ärende %s (#%d)\n", group.Reference, group.ErrandID)
	for _, e := range group.Entries {
		line := fmt.Sprintf("  %s  %-11s %s", e.At.Format("2006-01-02 15:04"), e.Kind, e.Text)
		if e.Kind == chrono.KindTransaction {
			line += fmt.Sprintf(" (%.2f kr)", float64(e.AmountOre)/100)
		}
		fmt.Println(line)
	}
	if group.Analysis != "" {
		fmt.Printf("\n%s\n", group.Analysis)
	}
}

func runSearch(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	if len(f.rest) == 0 {
		return fmt.Errorf("usage: triage search <query> [--llm provider/model] [--embed provider/model]")
	}
	query := strings.Join(f.rest, " ")

	cfg, err := resolve(f)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	ctx := context.Background()
	var opts []search.Option
	index, err := buildIndex(ctx, cfg, st, log)
	if err != nil {
		return err
	}
	if index != nil {
		opts = append(opts, search.WithIndex(index))
	}
	if cfg.LLMProvider.Value != "" {
		llmCfg, err := llm.ParseProviderFlag(cfg.LLMProvider.Value)
		if err != nil {
			return err
		}
		llmCfg.APIKey = cfg.APIKeyForProvider(cfg.LLMProvider.Value).Value
		provider, err := llm.NewProvider(llmCfg)
		if err != nil {
			return err
		}
		opts = append(opts, search.WithProvider(provider))
	}

	results, err := search.New(st, opts...).Search(ctx, query, f.limit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No matching emails.")
		return nil
	}
	for _, r := range results {
		fmt.Printf("#%-6d %-24s %s\n", r.EmailID, r.FromAddress, r.Subject)
		if r.Snippet != "" {
			fmt.Printf("        %s\n", r.Snippet)
		}
	}
	return nil
}

func runCorrect(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	if len(f.rest) != 2 {
		return fmt.Errorf("usage: triage correct <email-id> <category|-> [--db <path>]")
	}
	emailID, err := strconv.ParseInt(f.rest[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid email id %q", f.rest[0])
	}
	category := f.rest[1]
	if category == "-" {
		category = ""
	}
	if category != "" && !rules.Category(category).Valid() {
		return fmt.Errorf("unknown category %q (run \"triage catalog\" for the list)", category)
	}

	cfg, err := resolve(f)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.SetCorrectedCategory(ctx, emailID, category); err != nil {
		return err
	}
	email, err := st.GetEmail(ctx, emailID)
	if err != nil {
		return err
	}
	if category == "" {
		fmt.Printf("Email %d: override cleared, machine verdict %q applies\n", emailID, email.Category)
		return nil
	}
	fmt.Printf("Email %d: corrected %q -> %q\n", emailID, email.Category, category)
	return nil
}

func runReprocess(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := resolve(f)
	if err != nil {
		return err
	}

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	engine, err := buildEngine(ctx, cfg, catalog, st, log)
	if err != nil {
		return err
	}

	report, err := reprocess.NewRunner(engine, st, catalog).Run(ctx, f.dryRun, f.limit)
	if err != nil {
		return err
	}

	mode := "applied"
	if report.DryRun {
		mode = "dry run"
	}
	fmt.Printf("Reprocess (%s) against catalog %s: scanned %d, changed %d, applied %d, failed %d\n",
		mode, report.CatalogHash, report.Scanned, report.Changed, report.Applied, report.Failed)
	for _, a := range report.Actions {
		if a.FromCategory == a.ToCategory && a.FromCategory != "" {
			continue
		}
		fmt.Printf("  email %d: %s -> %s (%s)\n", a.EmailID, a.FromCategory, a.ToCategory, a.Reason)
	}
	return nil
}

func runServeMCP(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := resolve(f)
	if err != nil {
		return err
	}

	log := zap.NewNop() // stdout belongs to the MCP transport
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	engine, err := buildEngine(ctx, cfg, catalog, st, log)
	if err != nil {
		return err
	}
	sqlStore, ok := st.(*store.SQLiteStore)
	if !ok {
		return fmt.Errorf("MCP server requires the SQLite store")
	}

	srv := mcp.NewServer(mcp.ServerConfig{
		Catalog: catalog,
		Engine:  engine,
		Store:   st,
		Chrono:  chrono.New(sqlStore, nil),
		Version: version,
	})
	return mcp.ServeStdio(srv)
}

func runCatalog(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := resolve(f)
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	fmt.Printf("Catalog %s\n\n", catalog.Hash())
	for _, g := range catalog.Categories {
		fmt.Printf("  %-28s %d patterns\n", g.Category, len(g.Patterns))
	}
	fmt.Printf("\n  %d field groups, %d insurers, %d templates\n",
		len(catalog.Fields), len(catalog.Insurers), len(catalog.Templates))
	return nil
}

func runConfig(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := resolve(f)
	if err != nil {
		return err
	}

	printVal := func(name string, v config.ResolvedValue) {
		if v.Value == "" {
			fmt.Printf("  %-16s (unset)\n", name)
			return
		}
		fmt.Printf("  %-16s %s  [%s: %s]\n", name, v.Value, v.Source, v.From)
	}
	fmt.Printf("Config file: %s\n\n", cfg.ConfigPath)
	printVal("db_path", cfg.DBPath)
	printVal("catalog_dir", cfg.CatalogDir)
	printVal("llm", cfg.LLMProvider)
	printVal("embed", cfg.EmbedProvider)
	printVal("min_similarity", cfg.MinSimilarity)
	return nil
}

func printUsage() {
	fmt.Printf(`triage %s - Claim email triage for veterinary insurance errands

Usage:
  triage <command> [arguments]

Commands:
  process             Triage unprocessed emails (classify, extract, connect)
  import <path>       Import .eml files into the inbox
  log <errand-id>     Print chronological case logs (also --ref, --from/--to)
  search <query>      Search stored emails (keyword + semantic)
  correct <id> <cat>  Override an email's category ("-" clears the override)
  reprocess           Re-triage emails after a catalog change
  serve-mcp           Serve the triage tools over MCP (stdio)
  catalog             Show the loaded pattern catalog
  config              Show resolved configuration and provenance
  version             Print version

Flags:
  --db <path>             Database path
  --catalog <dir>         Pattern catalog directory (CSV overrides)
  --llm <provider/model>  LLM for case-log analysis
  --embed <provider/model> Embeddings for similarity fallback
  --min-similarity <f>    Similarity acceptance threshold
  --ref <reference>       Select the errand for log by claim reference
  --from/--to <date>      Select errands for log by creation day (YYYY-MM-DD)
  --limit <n>             Batch size for process, search and reprocess
  --dry-run               Report reprocess changes without writing
  -h, --help              Show this help message
  -v, --version           Print version
`, version)
}
