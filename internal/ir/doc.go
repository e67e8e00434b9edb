// Package ir holds the foundational types shared by every compiler layer:
// the sealed Value model used for typed operator arguments, canonical JSON
// encoding, content fingerprints and the CompileError taxonomy.
//
// All other internal packages may import ir; ir imports nothing internal.
package ir
