package domain

// ChecklistItem is one compliance criterion. Items are read-only inputs
// to a check run; they are grouped into sheets and evaluated in Order.
type ChecklistItem struct {
	// ID is the unique identifier for the item.
	ID string

	// SheetName groups items into a named checklist sheet.
	SheetName string

	// CheckID is the human-facing criterion code (e.g. "BAL-001").
	CheckID string

	// CheckText is the criterion text evaluated against the document.
	CheckText string

	// Category is an optional grouping label within the sheet.
	Category string

	// LegalBasis is an optional reference to the underlying regulation.
	LegalBasis string

	// ApplicableTypes lists the report types the criterion applies to.
	// The value is opaque to this core; filtering is a pass-through
	// predicate supplied by the caller.
	ApplicableTypes []string

	// Order is the evaluation ordering key within the checklist.
	Order int
}
