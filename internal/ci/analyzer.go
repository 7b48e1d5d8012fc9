package ci

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rendis/cigraph/internal/logging"
	"github.com/rendis/cigraph/internal/metrics"
	"github.com/rendis/cigraph/pkg/callgraph"
	"github.com/rendis/cigraph/pkg/schema"
)

// Result is the graph one dialect produced for a repository.
type Result struct {
	Dialect string               `json:"dialect"`
	Files   []string             `json:"files"`
	Graph   *callgraph.CallGraph `json:"-"`
	Elapsed time.Duration        `json:"elapsed"`
}

// Report is the outcome of one Analyze call.
type Report struct {
	RunID    string   `json:"run_id"`
	RepoPath string   `json:"repo_path"`
	Results  []Result `json:"results"`
}

// AnalyzerConfig tunes an Analyzer. Zero values mean every registered
// dialect and no concurrency limit.
type AnalyzerConfig struct {
	// Dialects restricts analysis to these names. Unknown names are errors.
	Dialects []string
	// Concurrency caps the number of graphs built at once.
	Concurrency int
}

// Analyzer builds one call graph per detected dialect.
type Analyzer struct {
	registry *Registry
	logger   *slog.Logger
	metrics  *metrics.Metrics
	cfg      AnalyzerConfig
}

// NewAnalyzer creates an Analyzer. logger and m may be nil.
func NewAnalyzer(reg *Registry, logger *slog.Logger, m *metrics.Metrics, cfg AnalyzerConfig) *Analyzer {
	return &Analyzer{registry: reg, logger: logging.OrDiscard(logger), metrics: m, cfg: cfg}
}

// Analyze detects the dialects present in repoPath and builds their graphs
// concurrently. Results are ordered by dialect name. A discovery I/O fault in
// any dialect, or cancellation, aborts the whole analysis.
func (a *Analyzer) Analyze(ctx context.Context, repoPath string) (*Report, error) {
	services, err := a.services()
	if err != nil {
		return nil, err
	}

	report := &Report{RunID: logging.NewRunID(), RepoPath: repoPath}
	ctx = logging.WithRunID(ctx, report.RunID)

	// Discovery runs here rather than through IsDetected so that I/O faults
	// abort the analysis instead of reading as "not detected".
	var detected []discovered
	for _, svc := range services {
		files, err := svc.GetWorkflows(repoPath)
		if err != nil {
			a.logger.ErrorContext(ctx, "discovery failed",
				slog.String("dialect", svc.Name()),
				slog.String("error", err.Error()))
			return nil, err
		}
		if len(files) > 0 {
			detected = append(detected, discovered{svc: svc, files: files})
		}
	}
	a.logger.InfoContext(ctx, "analysis started",
		slog.String("repo", repoPath),
		slog.Int("dialects", len(detected)))

	results := make([]Result, len(detected))
	g, gctx := errgroup.WithContext(ctx)
	if a.cfg.Concurrency > 0 {
		g.SetLimit(a.cfg.Concurrency)
	}
	for i, d := range detected {
		g.Go(func() error {
			res, err := a.analyzeOne(logging.WithDialect(gctx, d.svc.Name()), d, repoPath)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.logger.ErrorContext(ctx, "analysis failed", slog.String("error", err.Error()))
		return nil, err
	}

	report.Results = results
	a.logger.InfoContext(ctx, "analysis finished", slog.Int("graphs", len(results)))
	return report, nil
}

// discovered pairs a dialect with the files it found.
type discovered struct {
	svc   Service
	files []string
}

func (a *Analyzer) analyzeOne(ctx context.Context, d discovered, repoPath string) (Result, error) {
	svc := d.svc
	start := time.Now()
	cg, err := buildFiles(ctx, svc, repoPath, d.files)
	if err != nil {
		return Result{}, err
	}
	elapsed := time.Since(start)
	a.metrics.ObserveGraph(svc.Name(), cg, elapsed)

	stats := cg.Stats()
	var files []string
	for _, n := range cg.Root.Callees {
		files = append(files, n.SourcePath)
	}
	a.logger.DebugContext(ctx, "call graph built",
		slog.Int("files", len(files)),
		slog.Int("nodes", stats.Total),
		slog.Int("unresolved", stats.Unresolved),
		slog.Duration("elapsed", elapsed))
	return Result{Dialect: svc.Name(), Files: files, Graph: cg, Elapsed: elapsed}, nil
}

func (a *Analyzer) services() ([]Service, error) {
	if len(a.cfg.Dialects) == 0 {
		return a.registry.List(), nil
	}
	want := make(map[string]bool, len(a.cfg.Dialects))
	for _, name := range a.cfg.Dialects {
		if !a.registry.Has(name) {
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown dialect %q", name).
				WithDetails(map[string]any{"available": a.registry.Names()})
		}
		want[name] = true
	}
	var out []Service
	for _, svc := range a.registry.List() {
		if want[svc.Name()] {
			out = append(out, svc)
		}
	}
	return out, nil
}
