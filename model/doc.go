// Package model defines the provider-agnostic abstractions for interacting
// with language model backends inside agentloop.
//
// Core goals:
//   - Unify one-shot completion and chunked streaming behind a single
//     Provider interface
//   - Normalize tool / function call representation (ToolDefinition,
//     ToolCall, ToolCallDelta)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockProvider)
//
// Providers (e.g. OpenAI, Anthropic) implement the Provider interface from
// this package so the runner remains decoupled from vendor SDKs.
package model
