package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs sort lexicographically by creation
// time, which makes them safe as DynamoDB partition keys and stable to page
// over.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
