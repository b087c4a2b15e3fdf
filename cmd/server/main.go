// Command server exposes the normalization pipeline as a JSON HTTP API.
//
//	POST /v1/normalize  {"columns": [...], "rows": [[...], ...]}
//	GET  /health
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baditaflorin/l"
	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"

	"github.com/hohomsf/immunization-etl/pkg/normalizer"
)

const (
	DefaultPort           = 8080
	DefaultReadTimeout    = 30 * time.Second
	DefaultWriteTimeout   = 30 * time.Second
	DefaultMaxRequestSize = 10 * 1024 * 1024 // 10MB
)

var (
	norm   *normalizer.Normalizer
	logger l.Logger
)

// Request carries a raw tabular dataset: column labels as they appear in the
// source file plus row values (numbers, strings or nulls).
type Request struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// Response carries the canonical dataset and the run report.
type Response struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
	Report  ReportResponse  `json:"report"`
}

// ReportResponse summarizes the pipeline run.
type ReportResponse struct {
	RunID      string            `json:"run_id"`
	Rows       int               `json:"rows"`
	DurationMS float64           `json:"duration_ms"`
	Stages     map[string]string `json:"stages"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func main() {
	port := flag.Int("port", DefaultPort, "HTTP server port")
	readTimeout := flag.Duration("read-timeout", DefaultReadTimeout, "HTTP read timeout")
	writeTimeout := flag.Duration("write-timeout", DefaultWriteTimeout, "HTTP write timeout")
	maxRequestSize := flag.Int("max-request-size", DefaultMaxRequestSize, "Maximum request size in bytes")
	warmUp := flag.Bool("warm-up", true, "Run pipeline warmup on startup")
	logFile := flag.String("log-file", "", "Log file path (empty = stdout)")
	flag.Parse()

	var err error
	logger, err = createLogger(*logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	logger.Info("Starting normalization HTTP server",
		"port", *port,
		"read_timeout", *readTimeout,
		"write_timeout", *writeTimeout,
		"max_request_size", *maxRequestSize,
	)

	opts := []normalizer.Option{normalizer.WithLogger(logger)}
	if *warmUp {
		opts = append(opts, normalizer.WithWarmUp(true))
	}
	norm, err = normalizer.New(opts...)
	if err != nil {
		logger.Error("Failed to initialize normalizer", "error", err)
		os.Exit(1)
	}

	server := &fasthttp.Server{
		Handler:            requestHandler,
		ReadTimeout:        *readTimeout,
		WriteTimeout:       *writeTimeout,
		MaxRequestBodySize: *maxRequestSize,
		TCPKeepalive:       true,
		TCPKeepalivePeriod: 3 * time.Minute,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		logger.Info("Shutting down server...")
		if err := server.Shutdown(); err != nil {
			logger.Error("Error during server shutdown", "error", err)
		}
		close(idleConnsClosed)
	}()

	logger.Info("Server listening", "address", fmt.Sprintf(":%d", *port))
	if err := server.ListenAndServe(fmt.Sprintf(":%d", *port)); err != nil {
		logger.Error("Server error", "error", err)
	}

	<-idleConnsClosed
	logger.Info("Server stopped")
}

func createLogger(logFile string) (l.Logger, error) {
	output := os.Stdout
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		output = f
	}
	return l.NewStandardFactory().CreateLogger(l.Config{
		Output:      output,
		JsonFormat:  true,
		AsyncWrite:  true,
		BufferSize:  1024 * 1024,
		MaxFileSize: 10 * 1024 * 1024,
		MaxBackups:  5,
		AddSource:   false,
		Metrics:     true,
	})
}

func requestHandler(ctx *fasthttp.RequestCtx) {
	start := time.Now()
	ctx.Response.Header.Set("Content-Type", "application/json")

	switch string(ctx.Path()) {
	case "/health":
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString(`{"status":"ok"}`)
	case "/v1/normalize":
		if !ctx.IsPost() {
			writeError(ctx, fasthttp.StatusMethodNotAllowed, "only POST is supported")
			return
		}
		handleNormalize(ctx)
	default:
		writeError(ctx, fasthttp.StatusNotFound, "not found")
	}

	logger.Debug("Request handled",
		"path", string(ctx.Path()),
		"status", ctx.Response.StatusCode(),
		"duration", time.Since(start),
	)
}

func handleNormalize(ctx *fasthttp.RequestCtx) {
	var req Request
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if len(req.Columns) == 0 {
		writeError(ctx, fasthttp.StatusBadRequest, "columns must not be empty")
		return
	}

	ds, err := normalizer.FromRows(req.Columns, req.Rows)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, err.Error())
		return
	}

	out, report, err := norm.Normalize(context.Background(), ds)
	if err != nil {
		writeError(ctx, fasthttp.StatusUnprocessableEntity, err.Error())
		return
	}

	resp := Response{
		Columns: out.Columns(),
		Rows:    make([][]interface{}, 0, out.NumRows()),
		Report: ReportResponse{
			RunID:      report.RunID.String(),
			Rows:       report.Rows,
			DurationMS: float64(report.Duration.Microseconds()) / 1000.0,
			Stages:     make(map[string]string, len(report.Stages)),
		},
	}
	for _, st := range report.Stages {
		resp.Report.Stages[st.Stage] = st.Duration.String()
	}
	for i := 0; i < out.NumRows(); i++ {
		row := out.Row(i)
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = jsonValue(v)
		}
		resp.Rows = append(resp.Rows, cells)
	}

	body, err := json.Marshal(resp)
	if err != nil {
		writeError(ctx, fasthttp.StatusInternalServerError, err.Error())
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(body)
}

func jsonValue(v normalizer.Value) interface{} {
	switch raw := v.Interface().(type) {
	case decimal.Decimal:
		f, _ := raw.Float64()
		return f
	default:
		return raw
	}
}

func writeError(ctx *fasthttp.RequestCtx, status int, msg string) {
	ctx.SetStatusCode(status)
	body, _ := json.Marshal(ErrorResponse{Error: msg})
	ctx.SetBody(body)
}
