// Package database opens the relational store behind the task and account
// tables through GORM. PostgreSQL is the production driver; SQLite serves
// local runs and tests.
package database
