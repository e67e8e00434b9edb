package ir

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode categorizes compile errors.
type ErrorCode string

const (
	// ErrCodeUnknownLabel indicates a label referenced before it was bound.
	ErrCodeUnknownLabel ErrorCode = "UNKNOWN_LABEL"

	// ErrCodeUnknownSchemaElement indicates a vertex/edge label or property
	// name the schema does not recognize.
	ErrCodeUnknownSchemaElement ErrorCode = "UNKNOWN_SCHEMA_ELEMENT"

	// ErrCodeUnsupportedNesting indicates an operator nested where it
	// cannot be expressed as a per-row computation.
	ErrCodeUnsupportedNesting ErrorCode = "UNSUPPORTED_NESTING"

	// ErrCodeUnsupportedProjection indicates an operator applied to a value
	// shape it cannot consume.
	ErrCodeUnsupportedProjection ErrorCode = "UNSUPPORTED_PROJECTION"

	// ErrCodeEmptyLabelRequirement indicates a LabelStart requirement with
	// no labels. Always a rewrite bug.
	ErrCodeEmptyLabelRequirement ErrorCode = "EMPTY_LABEL_REQUIREMENT"

	// ErrCodeIllegalArgument indicates an out-of-range operator argument.
	ErrCodeIllegalArgument ErrorCode = "ILLEGAL_ARGUMENT"

	// ErrCodeCostEstimationAborted indicates the cost selector ran out of
	// step budget and fell back to the first candidate. Never fatal.
	ErrCodeCostEstimationAborted ErrorCode = "COST_ESTIMATION_ABORTED"

	// ErrCodeInvalidPlan indicates a violated plan IR invariant.
	ErrCodeInvalidPlan ErrorCode = "INVALID_PLAN"
)

// CompileError is the single error type returned by compilation. It
// carries the identity of the offending tree node when one is known.
type CompileError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// NodeID is the tree node id (0 when not node-specific).
	NodeID int

	// NodeKind is the tree node kind name, if known.
	NodeKind string

	// Details contains additional context.
	Details map[string]string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.NodeID != 0 {
		fmt.Fprintf(&b, " (node=%d", e.NodeID)
		if e.NodeKind != "" {
			fmt.Fprintf(&b, ", kind=%s", e.NodeKind)
		}
		b.WriteByte(')')
	}
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + e.Details[k]
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(parts, ", "))
	}
	return b.String()
}

// WithNode returns a copy of e attributed to the given node.
func (e *CompileError) WithNode(id int, kind string) *CompileError {
	cp := *e
	cp.NodeID = id
	cp.NodeKind = kind
	return &cp
}

// Errorf creates a CompileError with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *CompileError {
	return &CompileError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of the first CompileError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsCode reports whether err wraps a CompileError with the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// NewUnknownLabelError creates a CompileError for an unbound label.
func NewUnknownLabelError(name string) *CompileError {
	return &CompileError{
		Code:    ErrCodeUnknownLabel,
		Message: fmt.Sprintf("label %q is not bound", name),
		Details: map[string]string{"label": name},
	}
}

// NewUnknownSchemaElementError creates a CompileError for a schema miss.
// element is "label" or "property".
func NewUnknownSchemaElementError(element, name string) *CompileError {
	return &CompileError{
		Code:    ErrCodeUnknownSchemaElement,
		Message: fmt.Sprintf("unknown %s %q", element, name),
		Details: map[string]string{"element": element, "name": name},
	}
}

// NewUnsupportedProjectionError creates a CompileError for an operator
// applied to an incompatible value shape.
func NewUnsupportedProjectionError(op, shape string) *CompileError {
	return &CompileError{
		Code:    ErrCodeUnsupportedProjection,
		Message: fmt.Sprintf("%s cannot be applied to %s", op, shape),
		Details: map[string]string{"op": op, "shape": shape},
	}
}

// NewUnsupportedNestingError creates a CompileError for an operator that
// cannot appear inside the given enclosing step.
func NewUnsupportedNestingError(inner, outer string) *CompileError {
	return &CompileError{
		Code:    ErrCodeUnsupportedNesting,
		Message: fmt.Sprintf("%s cannot be nested inside %s", inner, outer),
		Details: map[string]string{"inner": inner, "outer": outer},
	}
}

// NewIllegalArgumentError creates a CompileError for a bad argument.
func NewIllegalArgumentError(format string, args ...any) *CompileError {
	return Errorf(ErrCodeIllegalArgument, format, args...)
}

// AttachNode attributes err to a tree node when err is a CompileError not
// yet attributed. Other errors are returned unchanged.
func AttachNode(err error, id int, kind string) error {
	var ce *CompileError
	if errors.As(err, &ce) && ce.NodeID == 0 {
		return ce.WithNode(id, kind)
	}
	return err
}
