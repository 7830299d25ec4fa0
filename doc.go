// Package bondcompile provides a compiler front-end for the Bond interface
// definition language (IDL).
//
// The compilation process involves four steps for each Bond source file:
//  1. Lexing and parsing the source into an AST (abstract syntax tree),
//     capturing references to generic parameters.
//  2. Normalizing the AST (field ordering, default handling).
//  3. Loading transitive imports and registering symbols.
//  4. Validating declarations and resolving all named type references.
//
// The Compiler type is the entry point for compilation. The ParseFile,
// ParseString, and ParseContent functions are conveniences over it that
// return a ParseResult with accumulated diagnostics instead of a single
// error.
//
// The compat package compares two compiled schemas and classifies every
// structural difference by its effect on binary and text protocols.
package bondcompile
