// Package llm defines the uniform model abstraction and the routing layer
// that resolves a model request (by name, by configuration, or by task) to
// a concrete provider adapter.
//
// The two halves of the package:
//
//   - Model / ChatSession: the capability contract every provider adapter
//     satisfies. Generation and chat calls degrade to empty results on
//     upstream failure; only adapter construction fails loudly.
//   - Router: owns a name→instance registry and a provider→constructor
//     registry, lazily memoizes a default model, and falls back to the
//     baseline provider when resolution or construction fails.
//
// Concrete adapters live in the llm/providers subpackages; the llm/factory
// package wires them into a Router without creating an import cycle.
package llm
