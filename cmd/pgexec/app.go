package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/youssefsiam38/pgexec"
	"github.com/youssefsiam38/pgexec/driver"
	"github.com/youssefsiam38/pgexec/driver/databasesql"
	"github.com/youssefsiam38/pgexec/driver/pgxv5"
	"github.com/youssefsiam38/pgexec/internal/config"
	"github.com/youssefsiam38/pgexec/metrics"
	"github.com/youssefsiam38/pgexec/server"
)

// Version is set at build time.
var Version = "dev"

// errQueryFailed is returned after printing an unsuccessful result so the
// process exits non-zero.
var errQueryFailed = errors.New("query failed")

func newApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "pgexec",
		Usage:     "Run parameterized PostgreSQL statements",
		Version:   Version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a YAML config file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "exec",
				Usage: "Execute one statement and print the result",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "SQL statement",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:    "param",
						Aliases: []string{"p"},
						Usage:   "Parameter as name=value; value is JSON when it parses, text otherwise",
					},
					&cli.StringFlag{
						Name:  "conn",
						Usage: "Connection string (defaults to connection_string from config)",
					},
					&cli.StringFlag{
						Name:  "driver",
						Usage: "pgx or databasesql (defaults to driver from config)",
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: "Auto, NonQuery, Reader or Scalar",
						Value: "Auto",
					},
					&cli.IntFlag{
						Name:  "timeout",
						Usage: "Command timeout in seconds (0 disables)",
					},
					&cli.StringFlag{
						Name:  "isolation",
						Usage: "Default, None, ReadCommitted, ReadUncommitted, RepeatableRead, Serializable or Snapshot",
					},
					&cli.BoolFlag{
						Name:  "no-throw",
						Usage: "Report failures as a result instead of an error",
					},
					&cli.StringFlag{
						Name:  "output",
						Usage: "json or yaml",
						Value: "json",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := config.Load(cmd.String("config"))
					if err != nil {
						return err
					}
					logger, err := newLogger(cfg, stderr)
					if err != nil {
						return err
					}
					return runExec(ctx, cmd, cfg, logger, stdout)
				},
			},
			{
				Name:  "serve",
				Usage: "Serve POST /v1/execute over HTTP",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (defaults to server.addr from config)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := config.Load(cmd.String("config"))
					if err != nil {
						return err
					}
					logger, err := newLogger(cfg, stderr)
					if err != nil {
						return err
					}
					if addr := cmd.String("addr"); addr != "" {
						cfg.Server.Addr = addr
					}
					return runServe(ctx, cfg, logger)
				},
			},
		},
	}
}

func runExec(ctx context.Context, cmd *cli.Command, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	format, err := outputFormat(cmd.String("output"))
	if err != nil {
		return err
	}

	in := pgexec.Input{
		Query:            cmd.String("query"),
		ConnectionString: cfg.ConnectionString,
	}
	if conn := cmd.String("conn"); conn != "" {
		in.ConnectionString = conn
	}

	mode, err := pgexec.ParseExecuteType(cmd.String("type"))
	if err != nil {
		return err
	}
	in.ExecuteType = mode

	for _, raw := range cmd.StringSlice("param") {
		p, err := parseParam(raw)
		if err != nil {
			return err
		}
		in.Parameters = append(in.Parameters, p)
	}

	opts := cfg.Options()
	if cmd.IsSet("timeout") {
		opts.CommandTimeoutSeconds = int(cmd.Int("timeout"))
	}
	if cmd.IsSet("isolation") {
		level, err := pgexec.ParseIsolationLevel(cmd.String("isolation"))
		if err != nil {
			return err
		}
		opts.IsolationLevel = level
	}
	if cmd.Bool("no-throw") {
		opts.ThrowErrorOnFailure = false
	}

	driverName := cfg.Driver
	if name := cmd.String("driver"); name != "" {
		driverName = name
	}
	drv, err := newDriver(driverName)
	if err != nil {
		return err
	}

	res, err := pgexec.New(drv, pgexec.WithLogger(logger)).Execute(ctx, in, opts)
	if err != nil {
		return err
	}
	if err := writeResult(out, res, format); err != nil {
		return err
	}
	if !res.Success {
		return errQueryFailed
	}
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	drv, err := newDriver(cfg.Driver)
	if err != nil {
		return err
	}

	rec := metrics.New(nil)
	exec := pgexec.New(drv, pgexec.WithLogger(logger), pgexec.WithMetrics(rec))

	handler := server.NewRouter(exec, &server.Config{
		Defaults:       cfg.Options(),
		Logger:         logger,
		Metrics:        rec,
		MetricsHandler: rec.Handler(),
		JWTSecret:      []byte(cfg.Server.JWTSecret),
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
	})

	return server.New(cfg.Server.Addr, handler, cfg.Server.ReadHeaderTimeout, cfg.Server.ShutdownTimeout, logger).Run(ctx)
}

func newDriver(name string) (driver.Driver, error) {
	switch name {
	case "pgx", "":
		return pgxv5.New(), nil
	case "databasesql":
		return databasesql.New(), nil
	default:
		return nil, fmt.Errorf("unknown driver %q", name)
	}
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// parseParam parses name=value. The value is decoded as JSON when possible
// so numbers, booleans and null keep their type; anything else is text.
func parseParam(raw string) (pgexec.Parameter, error) {
	name, value, ok := strings.Cut(raw, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return pgexec.Parameter{}, fmt.Errorf("invalid parameter %q, expected name=value", raw)
	}

	var v pgexec.Value
	if err := json.Unmarshal([]byte(value), &v); err != nil {
		v = pgexec.Text(value)
	}
	return pgexec.Parameter{Name: name, Value: v}, nil
}

// outputFormat canonicalizes the --output value. runExec checks it before
// the statement runs.
func outputFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "":
		return "json", nil
	case "yaml", "yml":
		return "yaml", nil
	default:
		return "", fmt.Errorf("unknown output format %q", format)
	}
}

// writeResult prints res as indented JSON or as YAML with keys in the
// same order.
func writeResult(w io.Writer, res *pgexec.Result, format string) error {
	format, err := outputFormat(format)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}

	switch format {
	case "json":
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(&node); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
