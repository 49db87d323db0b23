package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/ngrok/sqlmw"
	"github.com/prometheus/client_golang/prometheus"
)

const unknownLabel = "unknown"

var (
	verbRegex  = regexp.MustCompile(`^\s*(\w+)`)
	tableRegex = regexp.MustCompile(`(?i)\b(?:from|into|update|join)\s+"?(\w+)"?`)

	dbQueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Subsystem: "lease_planner",
		Name:      "db_query_duration_seconds",
		Help:      "time spent on database calls by driver operation, statement and table",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"op", "statement", "table"})

	dbQueryErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "lease_planner",
		Name:      "db_query_errors_total",
		Help:      "number of failed database calls by driver operation",
	}, []string{"op"})
)

func init() {
	prometheus.MustRegister(dbQueryDuration, dbQueryErrors)
}

// metricInterceptor wraps the sql driver and times every call reaching the database.
type metricInterceptor struct {
	sqlmw.NullInterceptor
}

func (mi *metricInterceptor) ConnBeginTx(ctx context.Context, conn driver.ConnBeginTx, opts driver.TxOptions) (context.Context, driver.Tx, error) {
	start := time.Now()
	tx, err := conn.BeginTx(ctx, opts)
	observe("begin", "", start, err)
	return ctx, tx, err
}

func (mi *metricInterceptor) ConnPrepareContext(ctx context.Context, conn driver.ConnPrepareContext, query string) (context.Context, driver.Stmt, error) {
	start := time.Now()
	stmt, err := conn.PrepareContext(ctx, query)
	observe("prepare", query, start, err)
	return ctx, stmt, err
}

func (mi *metricInterceptor) ConnExecContext(ctx context.Context, conn driver.ExecerContext, query string, args []driver.NamedValue) (driver.Result, error) {
	start := time.Now()
	res, err := conn.ExecContext(ctx, query, args)
	observe("exec", query, start, err)
	return res, err
}

func (mi *metricInterceptor) ConnQueryContext(ctx context.Context, conn driver.QueryerContext, query string, args []driver.NamedValue) (context.Context, driver.Rows, error) {
	start := time.Now()
	rows, err := conn.QueryContext(ctx, query, args)
	observe("query", query, start, err)
	return ctx, rows, err
}

func (mi *metricInterceptor) StmtExecContext(ctx context.Context, conn driver.StmtExecContext, query string, args []driver.NamedValue) (driver.Result, error) {
	start := time.Now()
	res, err := conn.ExecContext(ctx, args)
	observe("stmt_exec", query, start, err)
	return res, err
}

func (mi *metricInterceptor) StmtQueryContext(ctx context.Context, conn driver.StmtQueryContext, query string, args []driver.NamedValue) (context.Context, driver.Rows, error) {
	start := time.Now()
	rows, err := conn.QueryContext(ctx, args)
	observe("stmt_query", query, start, err)
	return ctx, rows, err
}

func (mi *metricInterceptor) TxCommit(ctx context.Context, conn driver.Tx) error {
	start := time.Now()
	err := conn.Commit()
	observe("commit", "", start, err)
	return err
}

func (mi *metricInterceptor) TxRollback(ctx context.Context, conn driver.Tx) error {
	start := time.Now()
	err := conn.Rollback()
	observe("rollback", "", start, err)
	return err
}

func observe(op, query string, start time.Time, err error) {
	statement, table := describeQuery(query)
	dbQueryDuration.WithLabelValues(op, statement, table).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, driver.ErrSkip) {
		dbQueryErrors.WithLabelValues(op).Inc()
	}
}

// describeQuery returns the lowercased sql verb and the first table named by query.
func describeQuery(query string) (statement, table string) {
	statement, table = unknownLabel, unknownLabel
	if query == "" {
		return "", ""
	}
	if m := verbRegex.FindStringSubmatch(query); m != nil {
		statement = strings.ToLower(m[1])
	}
	if m := tableRegex.FindStringSubmatch(query); m != nil {
		table = strings.ToLower(m[1])
	}
	return statement, table
}
