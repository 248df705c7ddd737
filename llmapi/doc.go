// Package llmapi is the provider boundary for the agent engine.
//
// It defines the conversation and completion option types, the ApiClient
// interface consumed by the agent executor, a typed error taxonomy with
// retryable/non-retryable classification, and a retrying invoker that wraps
// any provider call with bounded exponential backoff and jitter.
//
// The live implementation is GollmClient, which wraps the gollm library
// (github.com/teilomillet/gollm) so that per-provider wire formats stay out
// of this module entirely.
//
// # Quick start
//
//	client, err := llmapi.NewGollmClient("anthropic",
//	    llmapi.WithModel("claude-sonnet-4-5"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	text, calls, err := client.CompleteWithTools(ctx, messages, opts, nil)
//
// # Retry
//
// Invoke retries rate-limit (429), overloaded (529), and transport failures
// up to three times with delays of min(1s*2^n, 10s) plus jitter in
// [0, 500ms), preferring a server retry-after hint when one is present.
// Anything else returns to the caller immediately.
package llmapi
