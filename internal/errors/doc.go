// Package errors provides structured, actionable error messages for ssrpages.
//
// Every error carries a code (e.g. "E201") that maps to a category, a short
// message and a longer explanation. Call sites add the offending value and a
// suggestion:
//
//	err := errors.New("E201").
//	    WithDetail(`got "virtual:ssrpages:pageCode:/pages/index"`).
//	    WithSuggestion("Build ids with virtualmodule.ID{}.String()")
//
// # Error Categories
//
//   - usage: programmer-facing misconfiguration, never recovered
//   - config: project or page configuration files
//   - asset: code or data loading failures
//   - routing: route definition and matching failures
//   - cli: command line misuse
package errors
