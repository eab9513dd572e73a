// Package errors provides structured, actionable error messages for the
// impact command.
//
// Each error has a code (e.g., "E100") that maps to a category, a short
// message and an explanation. Callers add a suggestion and the underlying
// cause:
//
//	err := errors.New("E100").
//	    WithSuggestion("Create impact.json or pass --config").
//	    Wrap(cause)
//
//	fmt.Print(err.Format())
//	// ERROR E100: Configuration file not found
//	//
//	//   open impact.json: no such file or directory
//	//
//	//   No impact.json or impact.yaml was found in the given directory.
//	//
//	//   Hint: Create impact.json or pass --config
//
// FromError classifies reactive runtime failures (run budget, circular
// dependency, write during derivation, recovered panic) into codes E300-E304.
package errors
