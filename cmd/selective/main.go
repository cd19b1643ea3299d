package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/selective.report/internal/config"
	"github.com/banshee-data/selective.report/internal/db"
	"github.com/banshee-data/selective.report/internal/monitoring"
	"github.com/banshee-data/selective.report/internal/plotting"
	"github.com/banshee-data/selective.report/internal/report"
	"github.com/banshee-data/selective.report/internal/selective"
	"github.com/banshee-data/selective.report/internal/version"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("selective: %v", err)
	}
}

// options holds the parsed command line. Zero values mean "not given".
type options struct {
	records    string
	configPath string
	risk       float64
	coverages  string
	loss       string
	dbPath     string
	runName    string
	plotDir    string
	htmlPath   string
	csvPath    string
	metricsOut string
	phase      string
	epoch      int
	version    bool
	set        map[string]bool
}

func parseFlags(args []string, out io.Writer) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("selective", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&o.records, "records", "", "Score file (CSV with reservation,softmax_response,correct columns)")
	fs.StringVar(&o.configPath, "config", "", "Evaluation config JSON (defaults built in)")
	fs.Float64Var(&o.risk, "risk", selective.DefaultRisk, "Accuracy bound of the coverage metric")
	fs.StringVar(&o.coverages, "coverage", "", "Comma-separated target coverage percentages")
	fs.StringVar(&o.loss, "loss", "", "Training loss: ce, max, sat, sat_entropy or gambler")
	fs.StringVar(&o.dbPath, "db", "", "SQLite database to record the run in")
	fs.StringVar(&o.runName, "run", "", "Run name to record passes under")
	fs.StringVar(&o.plotDir, "plot", "", "Directory for PNG plots")
	fs.StringVar(&o.htmlPath, "html", "", "Write an HTML chart page to this file")
	fs.StringVar(&o.csvPath, "csv", "", "Write the coverage reports as CSV to this file")
	fs.StringVar(&o.metricsOut, "metrics-out", "", "Write Prometheus metrics in text format to this file")
	fs.StringVar(&o.phase, "phase", "test", "Pass phase label")
	fs.IntVar(&o.epoch, "epoch", 0, "Pass epoch")
	fs.BoolVar(&o.version, "version", false, "Print version and exit")
	fs.Usage = func() {
		fmt.Fprintln(out, "Usage: selective [flags]\n       selective migrate [-db path] <action>\n\nFlags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o, nil
}

// parseCoverages reads a comma-separated list of percentages.
func parseCoverages(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coverage %q: %w", part, selective.ErrConfiguration)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no coverage levels in %q: %w", s, selective.ErrConfiguration)
	}
	return out, nil
}

// loadConfig resolves the effective configuration: file (or built-in
// defaults) first, then any flags given explicitly.
func loadConfig(o *options) (*config.EvaluationConfig, error) {
	cfg := config.DefaultEvaluationConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = config.LoadEvaluationConfig(o.configPath); err != nil {
			return nil, err
		}
	}

	if o.set["risk"] {
		cfg.Risk = &o.risk
	}
	if o.set["coverage"] {
		cov, err := parseCoverages(o.coverages)
		if err != nil {
			return nil, err
		}
		cfg.Coverages = cov
	}
	overrides := []struct {
		name  string
		value string
		dst   **string
	}{
		{"loss", o.loss, &cfg.Loss},
		{"run", o.runName, &cfg.RunName},
		{"db", o.dbPath, &cfg.DBPath},
		{"plot", o.plotDir, &cfg.PlotDir},
		{"html", o.htmlPath, &cfg.HTMLPath},
	}
	for _, ov := range overrides {
		if o.set[ov.name] {
			v := ov.value
			*ov.dst = &v
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(args []string, stdout io.Writer) error {
	if len(args) > 0 && args[0] == "migrate" {
		return runMigrate(args[1:], stdout)
	}

	o, err := parseFlags(args, stdout)
	if err != nil {
		return err
	}
	if o.version {
		fmt.Fprintln(stdout, version.String())
		return nil
	}
	if o.records == "" {
		return fmt.Errorf("-records is required")
	}

	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	res, err := evaluateFile(cfg, o.records, o.phase, o.epoch)
	if err != nil {
		return err
	}
	if err := printResult(stdout, res); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	sink, err := monitoring.NewSink(reg)
	if err != nil {
		return err
	}
	recordMetrics(sink, res)
	if o.metricsOut != "" {
		if err := prometheus.WriteToTextfile(o.metricsOut, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	if o.csvPath != "" {
		if err := writeCSV(o.csvPath, cfg.GetRunName(), res); err != nil {
			return err
		}
	}

	var history []*db.PassRecord
	if path := cfg.GetDBPath(); path != "" {
		if history, err = persist(path, cfg, res); err != nil {
			return err
		}
	}

	if dir := cfg.GetPlotDir(); dir != "" {
		if err := writePlots(dir, res, history); err != nil {
			return err
		}
	}

	if path := cfg.GetHTMLPath(); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		title := fmt.Sprintf("%s %s epoch %d", cfg.GetRunName(), res.Phase, res.Epoch)
		if err := plotting.WriteHTML(f, title, res.Reports); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

func runMigrate(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stdout)
	dbPath := fs.String("db", "selective.db", "SQLite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	// Flags may also follow the action.
	var actionArgs []string
	for rest := fs.Args(); len(rest) > 0; rest = fs.Args() {
		actionArgs = append(actionArgs, rest[0])
		if err := fs.Parse(rest[1:]); err != nil {
			return err
		}
	}
	return db.RunMigrateCommand(actionArgs, *dbPath, stdout)
}

// evaluateFile runs one evaluation pass over a score file.
func evaluateFile(cfg *config.EvaluationConfig, path, phase string, epoch int) (selective.PassResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return selective.PassResult{}, err
	}
	defer f.Close()

	records, err := report.ReadRecords(f)
	if err != nil {
		return selective.PassResult{}, fmt.Errorf("%s: %w", path, err)
	}

	ev, err := cfg.NewEvaluator()
	if err != nil {
		return selective.PassResult{}, err
	}
	pass := ev.NewPass(phase, epoch)
	derived := make([]selective.Derived, len(records))
	for i, r := range records {
		derived[i] = r.Derived()
	}
	if err := pass.ObserveDerived(derived...); err != nil {
		return selective.PassResult{}, err
	}
	return pass.Finish()
}

func printResult(w io.Writer, res selective.PassResult) error {
	fmt.Fprintf(w, "%s: sac=%.4f top1=%.4f n=%d\n", res.Phase, res.SAC, res.Top1, res.N)

	labels := []struct{ source, line string }{
		{selective.SourceAbstention, "Abstention Logit"},
		{selective.SourceSoftmaxResponse, "Softmax Response"},
	}
	for _, l := range labels {
		if err := report.WriteAccuracyLine(w, l.line, res.QuickReports[l.source]); err != nil {
			return err
		}
	}
	for _, l := range labels {
		if err := report.WriteTable(w, report.SourceTitle(l.source), res.Reports[l.source]); err != nil {
			return err
		}
	}
	return nil
}

func recordMetrics(sink *monitoring.Sink, res selective.PassResult) {
	sink.RecordPass(res.Phase, res.SAC, res.Top1)
	for source, rep := range res.Reports {
		for _, p := range rep {
			sink.RecordCoverage(source, p.Target, p.Coverage, p.Accuracy)
		}
	}
}

func writeCSV(path, runName string, res selective.PassResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.NewCSVWriter(f).WriteResult(runName, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// persist records the pass under the named run, creating the run on first
// use, and returns the run's pass history.
func persist(path string, cfg *config.EvaluationConfig, res selective.PassResult) ([]*db.PassRecord, error) {
	database, err := db.NewDB(path)
	if err != nil {
		return nil, err
	}
	defer database.Close()

	name := cfg.GetRunName()
	runs, err := database.Runs().ListRuns(name)
	if err != nil {
		return nil, err
	}
	var r *db.Run
	if len(runs) > 0 {
		r = runs[0]
		if !sameSettings(r, cfg) {
			monitoring.Logf("WARNING: run %s was created with loss=%s risk=%v coverages=%v; recording a pass evaluated with loss=%s risk=%v coverages=%v",
				name, r.Loss, r.Risk, r.Coverages, cfg.GetLoss(), cfg.GetRisk(), cfg.GetCoverages())
		}
	} else {
		r = &db.Run{Name: name, Loss: cfg.GetLoss(), Risk: cfg.GetRisk(), Coverages: cfg.GetCoverages()}
		if err := database.Runs().CreateRun(r); err != nil {
			return nil, fmt.Errorf("create run %s: %w", name, err)
		}
		monitoring.Logf("created run %s (%s)", name, r.RunID)
	}

	pass := &db.PassRecord{RunID: r.RunID, Phase: res.Phase, Epoch: res.Epoch, N: res.N, SAC: res.SAC, Top1: res.Top1}
	if err := database.Passes().RecordPass(pass); err != nil {
		return nil, fmt.Errorf("record pass: %w", err)
	}
	for source, rep := range res.Reports {
		if err := database.Reports().InsertReport(r.RunID, source, rep); err != nil {
			return nil, fmt.Errorf("store %s report: %w", source, err)
		}
	}
	return database.Passes().ListPasses(r.RunID, "")
}

// sameSettings reports whether a stored run matches the evaluation settings
// in cfg.
func sameSettings(r *db.Run, cfg *config.EvaluationConfig) bool {
	if r.Loss != cfg.GetLoss() || r.Risk != cfg.GetRisk() {
		return false
	}
	cov := cfg.GetCoverages()
	if len(cov) != len(r.Coverages) {
		return false
	}
	for i := range cov {
		if cov[i] != r.Coverages[i] {
			return false
		}
	}
	return true
}

func writePlots(dir string, res selective.PassResult, history []*db.PassRecord) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := plotting.RiskCoveragePlot(res.Reports, filepath.Join(dir, "risk_coverage.png")); err != nil {
		return err
	}
	if len(history) > 0 {
		if err := plotting.PassHistoryPlot(history, filepath.Join(dir, "pass_history.png")); err != nil {
			return err
		}
	}
	return nil
}
