// Package domain defines the core business entities for Attesta.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A scanned document whose extracted text is under review
//   - Chunk: A page-traceable retrieval unit of document text
//   - ChecklistItem: One compliance criterion to evaluate
//   - CheckRun: One execution of a checklist against a document
//   - CheckResult: The verdict for one criterion within a run
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
