// Command rollup aggregates referendum ballot tallies into per-region
// results ready for map rendering.
//
// Usage:
//
//	rollup run --referendum data/referendum.csv --regions data/regions.csv \
//	  --departments data/departments.csv --geojson data/regions.geojson \
//	  --out results.json --geo-out results.geojson
//
//	rollup serve --http-addr :8080
//
// Environment variables provide defaults for every flag; see internal/config.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/mchastel/referendum-rollup/internal/adapter/csvtable"
	"github.com/mchastel/referendum-rollup/internal/adapter/geojson"
	httpadapter "github.com/mchastel/referendum-rollup/internal/adapter/http"
	kafkaadapter "github.com/mchastel/referendum-rollup/internal/adapter/kafka"
	"github.com/mchastel/referendum-rollup/internal/adapter/sqlite"
	"github.com/mchastel/referendum-rollup/internal/config"
	"github.com/mchastel/referendum-rollup/internal/domain"
	"github.com/mchastel/referendum-rollup/internal/observability"
	"github.com/mchastel/referendum-rollup/internal/pipeline"
)

func main() {
	app := &cli.App{
		Name:  "rollup",
		Usage: "aggregate referendum ballots into region results",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "regions", Usage: "path to the region reference CSV"},
			&cli.StringFlag{Name: "departments", Usage: "path to the department reference CSV"},
			&cli.StringFlag{Name: "referendum", Usage: "path to the referendum ballots CSV"},
			&cli.StringFlag{Name: "geojson", Usage: "path to the region geometry GeoJSON"},
			&cli.StringFlag{Name: "columns", Usage: "path to a YAML column-mapping file"},
			&cli.StringFlag{Name: "scope", Usage: "scope policy: mainland or all"},
			&cli.StringFlag{Name: "delimiter", Usage: "referendum CSV delimiter: \";\", \",\" or \"tab\""},
			&cli.StringFlag{Name: "sqlite", Usage: "path to the SQLite result store"},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "compute region results once and write them out",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Usage: "write results JSON to this path"},
					&cli.StringFlag{Name: "geo-out", Usage: "write annotated GeoJSON to this path (requires --geojson)"},
					&cli.BoolFlag{Name: "publish", Usage: "publish results to the Kafka sink topic"},
				},
				Action: runAction,
			},
			{
				Name:   "serve",
				Usage:  "compute region results and serve them over HTTP",
				Action: serveAction,
			},
			{
				Name:   "results",
				Usage:  "print the latest stored region results without recomputing",
				Action: resultsAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("rollup failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig merges environment configuration with CLI flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if v := c.String("regions"); v != "" {
		cfg.RegionsPath = v
	}
	if v := c.String("departments"); v != "" {
		cfg.DepartmentsPath = v
	}
	if v := c.String("referendum"); v != "" {
		cfg.ReferendumPath = v
	}
	if v := c.String("geojson"); v != "" {
		cfg.GeoJSONPath = v
	}
	if v := c.String("columns"); v != "" {
		cfg.ColumnMapPath = v
	}
	if v := c.String("sqlite"); v != "" {
		cfg.SQLitePath = v
	}
	if v := c.String("scope"); v != "" {
		scope := domain.ScopePolicy(v)
		if !scope.Valid() {
			return nil, fmt.Errorf("invalid --scope %q", v)
		}
		cfg.Scope = scope
	}
	if v := c.String("delimiter"); v != "" {
		d, err := config.ParseDelimiterFlag(v)
		if err != nil {
			return nil, err
		}
		cfg.ReferendumDelimiter = d
	}
	return cfg, nil
}

// executeRun loads the three tables and computes region results.
func executeRun(cfg *config.Config, logger *slog.Logger, p *pipeline.Pipeline) ([]domain.RegionResult, pipeline.RunReport, error) {
	mapping, err := config.LoadColumnMapping(cfg.ColumnMapPath)
	if err != nil {
		return nil, pipeline.RunReport{}, err
	}

	regions, err := csvtable.LoadRegions(cfg.RegionsPath)
	if err != nil {
		return nil, pipeline.RunReport{}, err
	}
	departments, err := csvtable.LoadDepartments(cfg.DepartmentsPath)
	if err != nil {
		return nil, pipeline.RunReport{}, err
	}
	ballots, err := csvtable.LoadBallots(cfg.ReferendumPath, cfg.ReferendumDelimiter, mapping.Referendum)
	if err != nil {
		return nil, pipeline.RunReport{}, err
	}

	logger.Info("tables loaded",
		"regions", len(regions), "departments", len(departments), "ballot_rows", len(ballots))

	return p.ComputeRegionResults(regions, departments, ballots, cfg.Scope)
}

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	p := pipeline.New(logger, metrics, pipeline.Options{
		IncludeEmptyRegions: cfg.IncludeEmptyRegions,
		RatioPolicy:         cfg.RatioPolicy,
	})

	results, report, err := executeRun(cfg, logger, p)
	if err != nil {
		return err
	}

	if out := c.String("out"); out != "" {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal results: %w", err)
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("write results: %w", err)
		}
		logger.Info("results written", "path", out)
	}

	if geoOut := c.String("geo-out"); geoOut != "" {
		if cfg.GeoJSONPath == "" {
			return errors.New("--geo-out requires --geojson (or REGIONS_GEOJSON)")
		}
		source, err := geojson.Load(cfg.GeoJSONPath)
		if err != nil {
			return err
		}
		annotated := p.Annotate(results, source)
		if err := geojson.WriteAnnotated(geoOut, annotated); err != nil {
			return err
		}
		logger.Info("annotated geojson written", "path", geoOut)
	}

	if cfg.SQLitePath != "" {
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer store.Close()

		runID, err := store.SaveRun(c.Context, report, results)
		if err != nil {
			return err
		}
		logger.Info("run stored", "run_id", runID, "path", cfg.SQLitePath)
	}

	if c.Bool("publish") {
		if !cfg.KafkaEnabled {
			return errors.New("--publish requires KAFKA_BROKERS")
		}
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer writer.Close()

		if err := writer.PublishResults(c.Context, results); err != nil {
			return err
		}
		metrics.ResultsPublished.Add(float64(len(results)))
	}

	printSummary(results, report)
	return nil
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	p := pipeline.New(logger, metrics, pipeline.Options{
		IncludeEmptyRegions: cfg.IncludeEmptyRegions,
		RatioPolicy:         cfg.RatioPolicy,
	})

	results, report, err := executeRun(cfg, logger, p)
	if err != nil {
		return err
	}

	if cfg.SQLitePath != "" {
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer store.Close()

		if _, err := store.SaveRun(c.Context, report, results); err != nil {
			return err
		}
	}

	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer writer.Close()

		if err := writer.PublishResults(c.Context, results); err != nil {
			return err
		}
		metrics.ResultsPublished.Add(float64(len(results)))
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func resultsAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.SQLitePath == "" {
		return errors.New("no result store configured; set --sqlite or SQLITE_PATH")
	}

	store, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := store.LatestResults(c.Context)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func printSummary(results []domain.RegionResult, report pipeline.RunReport) {
	fmt.Printf("Rollup complete: %d region(s) from %d ballot row(s) [scope=%s]\n",
		report.RegionsEmitted, report.BallotRows, report.Scope)
	if excluded := report.Stats.Excluded(); excluded > 0 {
		fmt.Printf("Excluded rows: %d out of scope, %d orphan, %d malformed\n",
			report.Stats.OutOfScope[domain.ClassOverseas]+report.Stats.OutOfScope[domain.ClassAbroad],
			report.Stats.Orphans, report.Stats.Malformed)
	}
	for _, r := range results {
		ratio := "   n/a"
		if r.Ratio != nil {
			ratio = fmt.Sprintf("%.4f", *r.Ratio)
		}
		fmt.Printf("  %-3s %-35s registered=%-9d A=%-9d B=%-9d ratio=%s\n",
			r.Code, r.Name, r.Registered, r.ChoiceA, r.ChoiceB, ratio)
	}
}
