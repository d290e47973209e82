package postgres

import "github.com/lib/pq"

// pqStringArray adapts a []string for use with Postgres ANY/ALL predicates.
func pqStringArray(ss []string) interface{} {
	return pq.Array(ss)
}
