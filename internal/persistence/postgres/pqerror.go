package postgres

import "github.com/lib/pq"

func asPQError(err error) (*pq.Error, bool) {
	pqErr, ok := err.(*pq.Error)
	return pqErr, ok
}
