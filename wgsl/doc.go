// Package wgsl parses WGSL (WebGPU Shading Language) source into the
// syntax tree of package ast.
//
// # Components
//
//   - Lexer: Tokenizes WGSL source code into tokens
//   - discoverTemplates: Marks the '<' '>' pairs that delimit template lists
//   - Parser: Parses tokens into an ast.Module
//
// Type names are not keywords: vec3<f32> is an identifier with a template
// list, and the resolver decides what it names.
//
// # Usage
//
//	module, errs := wgsl.Parse(source)
//	if errs.ContainsErrors() {
//	    fmt.Print(errs.FormatAll(source))
//	}
//
// The parser recovers at declaration boundaries, so one call reports the
// first error of every malformed declaration.
package wgsl
