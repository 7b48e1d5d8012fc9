package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rendis/cigraph/internal/builder"
	"github.com/rendis/cigraph/internal/ci"
	"github.com/rendis/cigraph/internal/diagram"
	"github.com/rendis/cigraph/internal/logging"
	"github.com/rendis/cigraph/internal/metrics"
	"github.com/rendis/cigraph/internal/query"
	"github.com/rendis/cigraph/internal/reusable"
	"github.com/rendis/cigraph/internal/validation"
	"github.com/rendis/cigraph/pkg/callgraph"
	"github.com/rendis/cigraph/pkg/schema"
)

const usageText = `Usage: cigraph <command> [flags] [repo]

Commands:
  analyze   build the call graph of every detected CI dialect
  detect    list the CI dialects present in a repository
  query     print the nodes matching a cel, expr or jq predicate
  diagram   render the call graph as mermaid, tree or png
  init      write ~/.cigraph/settings.json
  version   print the build version
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, loadConfig(), os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, cfg Config, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usageText)
		return 2
	}

	var err error
	switch args[0] {
	case "analyze":
		err = runAnalyze(ctx, cfg, args[1:], stdout, stderr)
	case "detect":
		err = runDetect(args[1:], stdout, stderr)
	case "query":
		err = runQuery(ctx, cfg, args[1:], stdout, stderr)
	case "diagram":
		err = runDiagram(ctx, cfg, args[1:], stdout, stderr)
	case "init":
		err = runInit(cfg, args[1:], stdout, stderr)
	case "version":
		printVersion(stdout)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usageText)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usageText)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}

// errUsage reports a flag error already printed by the flag set.
var errUsage = errors.New("usage")

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}
	if fs.NArg() > 1 {
		fmt.Fprintf(fs.Output(), "expected at most one repository path, got %d\n", fs.NArg())
		return errUsage
	}
	return nil
}

func repoArg(fs *flag.FlagSet) string {
	if fs.NArg() == 0 {
		return "."
	}
	return fs.Arg(0)
}

// analysis holds the flags shared by every command that builds graphs.
type analysis struct {
	cfg      Config
	dialects string
}

func newAnalysis(fs *flag.FlagSet, cfg Config) *analysis {
	a := &analysis{cfg: cfg}
	fs.StringVar(&a.cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&a.cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text, json")
	fs.StringVar(&a.cfg.MirrorDir, "mirror", cfg.MirrorDir, "directory holding mirrored reusable workflows")
	fs.IntVar(&a.cfg.Concurrency, "concurrency", cfg.Concurrency, "maximum dialects built at once (0: unlimited)")
	fs.StringVar(&a.dialects, "dialect", "", "comma-separated dialects to analyse (default: all detected)")
	return a
}

func (a *analysis) run(ctx context.Context, repo string, reg prometheus.Registerer, stderr io.Writer) (*ci.Report, error) {
	level, err := logging.ParseLevel(a.cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(level, a.cfg.LogFormat, stderr)
	if err != nil {
		return nil, err
	}
	v, err := validation.New()
	if err != nil {
		return nil, fmt.Errorf("compile schemas: %w", err)
	}

	opts := builder.Options{Logger: logger, Validator: v}
	if a.cfg.MirrorDir != "" {
		opts.Fetcher = reusable.NewLocalMirror(a.cfg.MirrorDir)
	}
	analyzer := ci.NewAnalyzer(ci.DefaultRegistry(opts), logger, metrics.New(reg), ci.AnalyzerConfig{
		Dialects:    splitList(a.dialects),
		Concurrency: a.cfg.Concurrency,
	})
	report, err := analyzer.Analyze(ctx, repo)
	if err != nil {
		return nil, err
	}
	if len(report.Results) == 0 {
		logger.WarnContext(ctx, "no CI configuration detected", "repo", repo)
	}
	return report, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// --- analyze ---

type resultJSON struct {
	ci.Result
	Graph *callgraph.CallGraph `json:"graph"`
}

type reportJSON struct {
	RunID    string       `json:"run_id"`
	RepoPath string       `json:"repo_path"`
	Results  []resultJSON `json:"results"`
}

func runAnalyze(ctx context.Context, cfg Config, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	a := newAnalysis(fs, cfg)
	fs.StringVar(&a.cfg.Output, "format", cfg.Output, "output format: tree, mermaid, json")
	metricsOut := fs.String("metrics-out", "", "write Prometheus metrics in text format to this file")
	strict := fs.Bool("strict", false, "fail when a parsed document has structural errors")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := a.cfg.validate(); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	report, err := a.run(ctx, repoArg(fs), reg, stderr)
	if err != nil {
		return err
	}
	if err := writeReport(stdout, a.cfg.Output, report); err != nil {
		return err
	}
	if *metricsOut != "" {
		if err := prometheus.WriteToTextfile(*metricsOut, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	if *strict {
		return structuralErrors(report)
	}
	return nil
}

// structuralErrors returns the first document in the report whose issues
// include errors.
func structuralErrors(report *ci.Report) error {
	var err error
	for _, r := range report.Results {
		r.Graph.Walk(func(n *callgraph.Node, _ int) bool {
			result := schema.ValidationResult{}
			for _, issue := range n.Issues {
				if issue.Severity == schema.SeverityError {
					result.Errors = append(result.Errors, issue)
				}
			}
			err = result.ToError(n.SourcePath)
			return err == nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func writeReport(w io.Writer, format string, report *ci.Report) error {
	switch format {
	case outputJSON:
		out := reportJSON{RunID: report.RunID, RepoPath: report.RepoPath, Results: []resultJSON{}}
		for _, r := range report.Results {
			out.Results = append(out.Results, resultJSON{Result: r, Graph: r.Graph})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case outputMermaid:
		for _, r := range report.Results {
			fmt.Fprintln(w, diagram.RenderMermaid(diagram.Build(r.Graph, r.Dialect)))
		}
	default:
		for _, r := range report.Results {
			fmt.Fprint(w, diagram.RenderTree(diagram.Build(r.Graph, r.Dialect)))
			stats := r.Graph.Stats()
			fmt.Fprintf(w, "%d nodes, %d unresolved, depth %d\n\n", stats.Total, stats.Unresolved, stats.MaxDepth)
		}
	}
	return nil
}

// --- detect ---

func runDetect(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	services, err := ci.DefaultRegistry(builder.Options{}).Detect(repoArg(fs))
	if err != nil {
		return err
	}
	for _, svc := range services {
		fmt.Fprintln(stdout, svc.Name())
	}
	return nil
}

// --- query ---

func runQuery(ctx context.Context, cfg Config, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.SetOutput(stderr)
	a := newAnalysis(fs, cfg)
	engineName := fs.String("engine", query.EngineCEL, "expression language: cel, expr, jq")
	expression := fs.String("expr", "", "predicate evaluated against each node (required)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *expression == "" {
		fmt.Fprintln(stderr, "-expr is required")
		return errUsage
	}
	eng, err := query.NewEngine(*engineName)
	if err != nil {
		return err
	}

	report, err := a.run(ctx, repoArg(fs), nil, stderr)
	if err != nil {
		return err
	}
	for _, r := range report.Results {
		nodes, err := query.Select(ctx, eng, r.Graph, *expression)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			fmt.Fprintf(stdout, "%s\t%s\t%s\t%s\n", r.Dialect, n, n.CallerPath, n.Context)
		}
	}
	return nil
}

// --- diagram ---

func runDiagram(ctx context.Context, cfg Config, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("diagram", flag.ContinueOnError)
	fs.SetOutput(stderr)
	a := newAnalysis(fs, cfg)
	format := fs.String("format", outputMermaid, "diagram format: mermaid, tree, png")
	out := fs.String("out", "", "output file (required for png; stdout otherwise)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	switch *format {
	case outputMermaid, outputTree:
	case outputPNG:
		if *out == "" {
			fmt.Fprintln(stderr, "-out is required for png")
			return errUsage
		}
	default:
		return fmt.Errorf("invalid diagram format %q (expected mermaid, tree or png)", *format)
	}

	report, err := a.run(ctx, repoArg(fs), nil, stderr)
	if err != nil {
		return err
	}

	var text strings.Builder
	for _, r := range report.Results {
		model := diagram.Build(r.Graph, r.Dialect)
		switch *format {
		case outputPNG:
			img, err := diagram.RenderImage(ctx, model)
			if err != nil {
				return err
			}
			dst := imagePath(*out, r.Dialect, len(report.Results))
			if err := os.WriteFile(dst, img, 0o644); err != nil {
				return fmt.Errorf("cannot write %s: %w", dst, err)
			}
			fmt.Fprintf(stdout, "Diagram written to %s\n", dst)
		case outputTree:
			text.WriteString(diagram.RenderTree(model))
		default:
			text.WriteString(diagram.RenderMermaid(model))
			text.WriteString("\n")
		}
	}
	if *format == outputPNG {
		return nil
	}
	if *out == "" {
		_, err := io.WriteString(stdout, text.String())
		return err
	}
	if err := os.WriteFile(*out, []byte(text.String()), 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", *out, err)
	}
	return nil
}

// imagePath suffixes out with the dialect when several images are written.
func imagePath(out, dialect string, count int) string {
	if count <= 1 {
		return out
	}
	ext := filepath.Ext(out)
	return strings.TrimSuffix(out, ext) + "-" + dialect + ext
}

// --- init ---

func runInit(cfg Config, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text, json")
	fs.StringVar(&cfg.MirrorDir, "mirror", cfg.MirrorDir, "directory holding mirrored reusable workflows")
	fs.StringVar(&cfg.Output, "format", cfg.Output, "default analyze output: tree, mermaid, json")
	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "maximum dialects built at once (0: unlimited)")
	path := fs.String("path", settingsPath(), "settings file to write")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "init takes no positional arguments")
		return errUsage
	}

	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return err
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	if cfg.MirrorDir != "" {
		abs, err := filepath.Abs(cfg.MirrorDir)
		if err != nil {
			return err
		}
		cfg.MirrorDir = abs
	}
	if err := writeSettings(*path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Config written to %s\n", *path)
	return nil
}
