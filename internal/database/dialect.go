package database

import (
	"strconv"
	"strings"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// dialect papers over the few places SQLite and Postgres differ.
type dialect struct {
	driver string
}

func (d dialect) postgres() bool {
	return d.driver == DriverPostgres
}

// rebind rewrites ? placeholders to $n for Postgres.
func (d dialect) rebind(query string) string {
	if !d.postgres() {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// forUpdate appends a row lock clause. SQLite already holds the database
// write lock from BEGIN IMMEDIATE, so the clause is omitted there.
func (d dialect) forUpdate(query string) string {
	if !d.postgres() {
		return query
	}
	return query + " FOR UPDATE"
}

func (d dialect) autoIncrementKey() string {
	if d.postgres() {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// placeholders returns "?, ?, ?" for n values.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
