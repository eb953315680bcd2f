// Package telemetry wraps OpenTelemetry SDK setup for traces. When telemetry
// is disabled, no exporter is created and the global provider remains noop.
// This package is internal and should not be imported by external projects.
package telemetry
