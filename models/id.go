package models

import (
	"strconv"
	"sync"
	"time"
)

var (
	idMu   sync.Mutex
	lastID int64
	nowMs  = func() int64 { return time.Now().UnixMilli() }
)

// NewSubmissionID returns a millisecond timestamp token. Ids never repeat and
// strictly increase within one process, even when two submissions arrive in
// the same millisecond or the wall clock steps backwards.
func NewSubmissionID() string {
	idMu.Lock()
	defer idMu.Unlock()

	id := nowMs()
	if id <= lastID {
		id = lastID + 1
	}
	lastID = id
	return strconv.FormatInt(id, 10)
}
