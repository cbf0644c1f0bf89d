// Package sqlite persists scenes, region lock state and rendered frame
// records in SQLite.
//
// All SQL for the stage packages lives here; the stages themselves never
// touch a database. The schema is managed with embedded golang-migrate
// migrations applied by Open.
package sqlite
