// Package ast defines types for the abstract syntax tree of a Bond IDL
// source file, along with the position and comment bookkeeping accumulated
// during lexing.
//
// The recursive forms of the language are modeled as closed sums: Type,
// Declaration, Default, Method, and MethodType are each sealed interfaces
// whose variants all live in this package. Consumers are expected to switch
// exhaustively over them.
//
// A freshly parsed file contains UnresolvedUserType nodes for every named
// type reference. Semantic analysis (the linker package) replaces these with
// UserDefined references to the declarations they name; a fully resolved AST
// contains no UnresolvedUserType nodes.
package ast
