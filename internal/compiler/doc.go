// Package compiler runs one compilation session per request: build the
// traversal tree, validate it, rewrite it, lower it to a logical plan and
// fingerprint the result. Plans can optionally be archived to a store.
//
// A Compiler is safe for concurrent use; every Compile call gets its own
// tree context, label manager and plan builder.
package compiler
