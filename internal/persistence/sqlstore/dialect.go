package sqlstore

import (
	"strconv"
	"strings"
)

// Dialect captures the differences between the supported SQL engines.
// Queries are written once with '?' placeholders and rebound per dialect.
type Dialect struct {
	name       string
	driverName string
	numbered   bool
	forUpdate  string
}

var (
	// SQLite targets modernc.org/sqlite.
	SQLite = Dialect{name: "sqlite", driverName: "sqlite"}
	// Postgres targets github.com/lib/pq.
	Postgres = Dialect{name: "postgres", driverName: "postgres", numbered: true, forUpdate: " FOR UPDATE"}
)

// Name returns the dialect name, which is also the migration directory name.
func (d Dialect) Name() string {
	return d.name
}

// DriverName returns the database/sql driver name.
func (d Dialect) DriverName() string {
	return d.driverName
}

// ForUpdate returns the row locking suffix for SELECT statements. SQLite takes
// the database write lock when the transaction begins, so it needs none.
func (d Dialect) ForUpdate() string {
	return d.forUpdate
}

// Rebind converts '?' placeholders to the dialect's placeholder syntax.
// Question marks inside single-quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if !d.numbered || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// placeholders returns n comma separated '?' markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
