package smoke

import "os"

// ShowHelp prints usage information for the smoke tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Essay API Smoke Tool
====================

Drives a running essay API through login, a concurrent double submit,
sequential submissions, profile checks and a logout/login cycle.

Usage:
  go run ./cmd/smoke [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -email string
        Identity to log in as (default: generated)
  -submissions int
        Sequential submissions (default 5)
  -timeout duration
        HTTP request timeout (default 90s)
  -seed int
        Seed for generated essays (default 1)
  -verbose
        Log every submission
  -help
        Show this help message
`)
}
