// Package parser contains the lexer and parser for Bond IDL source. Parse
// produces an *ast.File; ResultFromAST then applies the normalization
// policies that turn a freshly parsed tree into the form the linker expects
// (ordinal-sorted fields and Maybe-wrapped nothing defaults). References to
// generic parameters are already captured by Parse itself.
package parser
