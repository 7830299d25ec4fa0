// Package linker performs the semantic analysis of parsed Bond files:
// registering declarations in a symbol table, validating each declaration,
// and resolving every named type reference to the declaration it names.
//
// Link operates on one compilation unit at a time: the root file plus its
// transitive imports, in load order. The symbol table is shared across the
// files of a unit; alias declarations are deliberately kept out of it and
// resolved through per-file scopes instead.
package linker
