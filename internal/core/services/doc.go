// Package services contains the application core: retrieval, verdict
// evaluation, check-run orchestration and document ingestion. Services
// depend only on domain types and ports; adapters are injected at
// startup by the CLI wiring.
package services
