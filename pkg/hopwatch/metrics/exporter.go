// SPDX-FileCopyrightText: 2026 The hopwatch authors
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc/credentials"
)

// Exporter is the protocol used to export the traces
type Exporter string

const (
	// HTTP exports the traces via HTTP to the configured collector
	HTTP Exporter = "http"
	// GRPC exports the traces via gRPC to the configured collector
	GRPC Exporter = "grpc"
	// STDOUT prints the traces to stdout
	STDOUT Exporter = "stdout"
	// NOOP discards the traces
	NOOP Exporter = ""
)

// Create creates a span exporter based on the configured protocol
func (e Exporter) Create(ctx context.Context, cfg *Config) (sdktrace.SpanExporter, error) {
	switch e {
	case HTTP:
		return newHTTPExporter(ctx, cfg)
	case GRPC:
		return newGRPCExporter(ctx, cfg)
	case STDOUT:
		return stdouttrace.New()
	case NOOP:
		return noopExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", e)
	}
}

// Validate validates the exporter
func (e Exporter) Validate() error {
	switch e {
	case HTTP, GRPC, STDOUT, NOOP:
		return nil
	default:
		return fmt.Errorf("unsupported exporter type: %s", e)
	}
}

// IsExporting returns true if the exporter sends traces to a collector
func (e Exporter) IsExporting() bool {
	return e == HTTP || e == GRPC
}

func (e Exporter) String() string {
	if e == NOOP {
		return "noop"
	}
	return string(e)
}

func newHTTPExporter(ctx context.Context, cfg *Config) (sdktrace.SpanExporter, error) {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(cfg.Url),
		otlptracehttp.WithHeaders(headers(cfg)),
	}
	if !cfg.TLS.Enabled {
		opts = append(opts, otlptracehttp.WithInsecure())
	} else {
		tlsCfg, err := tlsConfig(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, otlptracehttp.WithTLSClientConfig(tlsCfg))
	}
	return otlptracehttp.New(ctx, opts...)
}

func newGRPCExporter(ctx context.Context, cfg *Config) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Url),
		otlptracegrpc.WithHeaders(headers(cfg)),
	}
	if !cfg.TLS.Enabled {
		opts = append(opts, otlptracegrpc.WithInsecure())
	} else {
		tlsCfg, err := tlsConfig(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewTLS(tlsCfg)))
	}
	return otlptracegrpc.New(ctx, opts...)
}

func headers(cfg *Config) map[string]string {
	h := map[string]string{}
	if cfg.Token != "" {
		h["Authorization"] = fmt.Sprintf("Bearer %s", cfg.Token)
	}
	return h
}

func tlsConfig(cfg *Config) (*tls.Config, error) {
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	if cfg.TLS.CertPath != "" {
		pem, err := os.ReadFile(cfg.TLS.CertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read certificate file %q: %w", cfg.TLS.CertPath, err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("failed to parse certificate file %q", cfg.TLS.CertPath)
		}
	}
	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

var _ sdktrace.SpanExporter = noopExporter{}

// noopExporter drops all spans
type noopExporter struct{}

func (noopExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error { return nil }
func (noopExporter) Shutdown(context.Context) error                            { return nil }
