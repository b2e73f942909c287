package main

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/operator-framework/outer-count/pkg/count"
	"github.com/operator-framework/outer-count/pkg/metrics"
	"github.com/operator-framework/outer-count/pkg/oracle"
	"github.com/operator-framework/outer-count/pkg/qbf"
	"github.com/operator-framework/outer-count/pkg/qbf/qdimacs"
	"github.com/operator-framework/outer-count/pkg/telemetry"
	"github.com/operator-framework/outer-count/pkg/version"
)

type options struct {
	backend       string
	oracleConfig  string
	jobs          int
	metricsFile   string
	traceExporter string
}

func newRootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "outer-count <qdimacs-file>...",
		Short: "count outermost-block solutions of a QBF",
		Long: `Count the assignments of the outermost quantifier block under which a
QDIMACS formula is true (if it is true) or false (if it is false).`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				log.SetLevel(log.DebugLevel)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd.Context(), cmd.OutOrStdout(), args)
		},
	}
	cmd.Version = version.String()
	cmd.SetVersionTemplate("{{ .Version }}")

	cmd.Flags().Bool("debug", false, "enable debug logging")
	if err := cmd.Flags().MarkHidden("debug"); err != nil {
		log.Panic(err.Error())
	}
	o.addFlags(cmd.Flags())
	return cmd
}

func (o *options) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.backend, "backend", "", "oracle backend, bdd or expand (overrides --oracle-config)")
	fs.StringVar(&o.oracleConfig, "oracle-config", "", "YAML file with oracle tuning")
	fs.IntVarP(&o.jobs, "jobs", "j", 1, "number of files counted concurrently")
	fs.StringVar(&o.metricsFile, "metrics-file", "", "write prometheus metrics in text format to this file")
	fs.StringVar(&o.traceExporter, "trace-exporter", telemetry.ExporterNone, "span exporter, none or stdout")
}

func (o options) oracleOptions() (oracle.Config, error) {
	cfg := oracle.DefaultConfig()
	if o.oracleConfig != "" {
		var err error
		if cfg, err = oracle.LoadConfig(o.oracleConfig); err != nil {
			return cfg, err
		}
	}
	if o.backend != "" {
		cfg.Backend = o.backend
	}
	return cfg, cfg.Validate()
}

func (o options) run(ctx context.Context, out io.Writer, paths []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if o.jobs < 1 {
		return fmt.Errorf("--jobs must be at least 1, got %d", o.jobs)
	}
	cfg, err := o.oracleOptions()
	if err != nil {
		return err
	}

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "outer-count",
		ServiceVersion: version.Version,
		TraceExporter:  o.traceExporter,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.WithError(err).Warn("flushing spans")
		}
	}()

	var registry *prometheus.Registry
	if o.metricsFile != "" {
		registry = prometheus.NewRegistry()
		metrics.RegisterWith(registry)
	}

	reports := make([]bytes.Buffer, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.jobs)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			return countFile(gctx, &reports[i], path, cfg)
		})
	}
	err = g.Wait()

	for i := range reports {
		if len(paths) > 1 && reports[i].Len() > 0 {
			fmt.Fprintf(out, "==> %s <==\n", paths[i])
		}
		if _, werr := reports[i].WriteTo(out); werr != nil && err == nil {
			err = werr
		}
	}

	if registry != nil {
		if werr := prometheus.WriteToTextfile(o.metricsFile, registry); werr != nil && err == nil {
			err = errors.Wrap(werr, "writing metrics")
		}
	}
	return err
}

// countFile counts one QDIMACS file and writes its report to w.
func countFile(ctx context.Context, w io.Writer, path string, cfg oracle.Config) error {
	logger := log.WithField("file", path)
	f, err := qdimacs.Load(path)
	if err != nil {
		return err
	}
	printHeader(w, f)

	tracer := &reportTracer{w: w, progress: count.NewProgressTracer(w)}
	s, err := count.NewSession(f,
		count.WithOracleConfig(cfg),
		count.WithTracer(tracer),
		count.WithLogger(logger))
	if err != nil {
		return errors.Wrapf(err, "counting %s", path)
	}
	defer s.Close()

	result, err := s.Run(ctx)
	if err != nil {
		return errors.Wrapf(err, "counting %s", path)
	}
	logger.WithFields(log.Fields{
		"session":     result.SessionID,
		"witnesses":   result.Witnesses,
		"solve-calls": result.SolveCalls,
		"duration":    result.Duration,
	}).Debug("counting finished")

	switch {
	case result.Empty:
		fmt.Fprintln(w, "formula is empty or contains empty clause")
		fmt.Fprintln(w, "there are 0 solutions for the outermost vars")
	case result.Overflow:
		tracer.announce(result.Truth)
		fmt.Fprintln(w, "more than 2^64 (counter-)models found - counting stopped")
		fmt.Fprintf(w, "there are > %d solutions for the outermost vars\n", count.Sentinel)
	default:
		tracer.announce(result.Truth)
		fmt.Fprintf(w, "there are %d solutions for the outermost vars\n", result.Count)
	}
	return nil
}

func printHeader(w io.Writer, f *qbf.Formula) {
	fmt.Fprintf(w, "number of vars: %d\n", f.NumVars)
	fmt.Fprintf(w, "number of clauses: %d\n", f.NumClauses)
	sel, err := qbf.Select(f)
	if err != nil || len(sel.Blocks) == 0 {
		return
	}
	fmt.Fprintf(w, "first quantifier: %c\n", sel.Outer().Letter())
	for i, b := range sel.Blocks {
		fmt.Fprintf(w, "size of block %d: %d\n", i+1, len(b.Vars))
	}
}

// reportTracer prints the truth value ahead of the first progress
// line.
type reportTracer struct {
	w         io.Writer
	progress  *count.ProgressTracer
	announced bool
}

func (t *reportTracer) Trace(p count.Progress) {
	t.announce(p.State() == count.EnumSat)
	t.progress.Trace(p)
}

func (t *reportTracer) announce(truth bool) {
	if t.announced {
		return
	}
	t.announced = true
	if truth {
		fmt.Fprintln(t.w, "the formula is true")
	} else {
		fmt.Fprintln(t.w, "the formula is false")
	}
}
