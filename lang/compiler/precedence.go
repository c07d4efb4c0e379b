package compiler

// Precedence implements the Pratt-parser precedence ladder (spec.md §4.2),
// low to high: none, assignment, or, and, equality, bitwise-or,
// bitwise-xor, bitwise-and, comparison, shift, term, factor, unary, call,
// primary.
type Precedence int

const (
	PrecNone Precedence = iota
	PrecAssignment
	PrecOr
	PrecAnd
	PrecEquality
	PrecBitOr
	PrecBitXor
	PrecBitAnd
	PrecComparison
	PrecShift
	PrecTerm
	PrecFactor
	PrecUnary
	PrecCall
	PrecPrimary
)
