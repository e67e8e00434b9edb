package ir

// Version constants for the emitted plan format and the compiler.
const (
	// PlanFormatVersion is bumped whenever the logical shape of emitted
	// plans changes.
	PlanFormatVersion = "1"

	// CompilerVersion is the gplan compiler version.
	CompilerVersion = "0.1.0"
)
