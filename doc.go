/*
Package gradewise is the backend that tracks exam-paper grading jobs.

A client uploads a paper configuration, starts grading it and polls the job until it completes or fails.

Layout:
  - core: config, errors, validation and the paper and grading domains
  - storage/database: in-memory and postgres repositories, migrations bootstrap
  - services: logging (rollbar) and email (console, sendgrid)
  - apps/api: HTTP API (echo) wired with dig
  - apps/admin: migrations and maintenance CLI

TODO: expose job progress over SSE so clients can stop polling.
*/
package gradewise
