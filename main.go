// The main package for the zipline executable.
//
// Architecture overview:
//   - CLI: cmd builds a cobra command tree. PersistentPreRunE loads the
//     configuration (internal/config), installs the zap logger on stderr and
//     builds the service container (internal/app) that every command reads
//     from its context.
//   - Site access: internal/boj fetches pages through the colly fetcher, paced
//     per host by internal/policy/ratelimit. When headless is enabled, pages the
//     detector rejects are fetched again through chromedp. Every fetched page
//     can be kept as a snapshot in memory, on disk or in GCS.
//   - Extraction: internal/markup turns page text into tag events and
//     internal/extract builds categories, previews, problem details and
//     submission records from them without building a DOM.
//   - Judging: internal/pusher subscribes to the solution channel over a
//     websocket and internal/judge merges the live updates until a verdict.
//     Snapshots fan out through internal/progress to log, Prometheus,
//     Postgres and Pub/Sub sinks.
//
// Quick checklist:
//   - Put the session cookie in ZIPLINE_BOJ_COOKIE (a .env file works).
//   - Optional: ZIPLINE_DB_DSN for history, ZIPLINE_PUBSUB_PROJECT_ID for
//     outcome notifications, ZIPLINE_METRICS_ADDR for /metrics.
package main

import (
	"github.com/Nergy-TCGeneric/Zipline/cmd"
)

// main defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
