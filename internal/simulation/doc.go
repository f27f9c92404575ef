// Package simulation provides interfaces and errors for simulating
// survey respondents with external AI/LLM services. It abstracts the
// details of LLM API integration (Gemini), allowing the orchestration
// layer to collect answers without coupling to a specific provider.
package simulation
