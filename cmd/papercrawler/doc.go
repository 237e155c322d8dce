// Package main hosts the paper ingestion service entrypoint.
//
// Architecture overview:
//   - Sources: each tracked journal is a data-only SourceDescriptor (base URL,
//     pagination parameter, header profile, ordered extraction strategies,
//     feed URLs). Adding a journal is a configuration change, not a code change.
//   - Fetch pipeline: per-source Colly sessions apply the source's browser
//     header profile, a fixed politeness delay and jittered retry backoff.
//     Deliberate denials (403/429) are never retried; they escalate to the
//     source's syndication feed via the fallback chain.
//   - Extraction & normalization: goquery-based strategies are tried in
//     priority order per page; raw records are normalized into canonical
//     papers (author splitting with the "others" sentinel, date parsing,
//     newest-first ordinals) and tagged against a keyword topic vocabulary.
//   - Persistence: papers merge insert-only into Postgres (or an in-memory
//     store when no DSN is configured), keyed by a content-derived identity
//     hash, so replaying any run is a no-op. Raw pages can be archived to
//     memory, the local filesystem or GCS for selector-drift debugging.
//   - Runs: a bounded worker pool ingests sources in parallel with per-source
//     isolation; the run summary can be published to Pub/Sub. The HTTP server
//     exposes the run trigger, stats, health probes and Prometheus metrics.
//
// Operational notes:
//   - Configuration: Viper populates config from env (PAPERCRAWLER_ prefix)
//     and/or a YAML file; zap provides structured logging.
//   - Run once: papercrawler ingest --config config.yaml (exit code 0 full
//     success, 2 partial, 1 total failure).
//   - Serve: papercrawler serve, then POST /v1/ingest to trigger a run.
package main
