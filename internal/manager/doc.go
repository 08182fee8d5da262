// Package manager owns the lifecycle of the local Ollama runtime and every
// request sent to it. It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, simple getters.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - params.go: generation options forwarded to the runtime.
//   - errors.go: error types and helpers (IsUnavailable, IsModelNotFound, ...).
//   - client.go: HTTP client for the runtime API (version, tags, pull, generate, show, delete).
//   - launcher*.go: platform-specific `ollama serve` launch.
//   - ensure.go: HealthCheck and single-flight EnsureRunning.
//   - models.go: inventory, pull, delete and show operations.
//   - switch.go: SwitchModel and task-based model selection.
//   - inference.go: Generate and GenerateStream.
//   - status_report.go: Status/Snapshot reporting helpers.
//   - metrics.go: Prometheus collectors for runtime activity.
//
// Public operations never return errors. Failures are reported as booleans,
// empty results or display text, and the underlying cause is logged. The
// typed errors in errors.go classify failures inside the package.
package manager
