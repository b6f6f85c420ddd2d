// Package providers holds the plumbing shared by all provider adapters:
// typed provider configs, HTTP error mapping, OpenAI-compatible wire types
// and converters, the client-side chat session, and token estimation.
//
// Concrete adapters live in the subpackages (openai, deepseek, gemini,
// anthropic); OpenAI-compatible providers share the openaicompat base.
package providers
