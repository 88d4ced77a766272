package main

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	ferrors "github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/internal/errors"
)

// setupTracing installs a global tracer provider that writes spans as JSON
// to path. The returned function flushes pending spans and closes the file.
func setupTracing(path string) (func(context.Context) error, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, ferrors.New("F080").
			WithDetail("cannot create trace file " + path).
			Wrap(err)
	}

	tp, err := newTracerProvider(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		return err
	}, nil
}

func newTracerProvider(w io.Writer) (*sdktrace.TracerProvider, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}
	res := resource.NewSchemaless(
		attribute.String("service.name", "faceflap"),
		attribute.String("service.version", version),
	)
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	), nil
}
