// Package llm is the OpenRouter-backed rewrite step of JSON repair.
//
// Client.Rewrite sends malformed JSON to the configured model under
// repair.RewritePrompt and returns whatever text comes back; the repair loop
// owns framing, parsing and the attempt bound.
//
// Failures carry services error kinds. HTTP 408, 429 and 5xx responses,
// network timeouts and empty completions are services.ErrTransient and are
// retried here with exponential backoff (Retry-After wins when present)
// before Rewrite gives up; the repair loop may call again on its next
// attempt. Any other HTTP error is services.ErrExternalTool and a missing
// API key is services.ErrConfiguration; neither is retried anywhere.
package llm
