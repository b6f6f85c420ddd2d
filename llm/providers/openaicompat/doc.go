// Package openaicompat is the shared base for every provider that speaks
// the OpenAI chat-completions dialect. OpenAI and DeepSeek embed the
// Adapter and only override what differs: provider name, base URL, default
// model, headers, and the credential environment variable.
//
// The package is split in two layers. Client is the wire layer: it returns
// errors like any HTTP client. Adapter is the capability layer: it applies
// the degrade-to-empty policy on top of Client, so generation failures
// surface as empty results plus a diagnostic log, never as errors.
package openaicompat
