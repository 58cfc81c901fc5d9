package store

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyResponded = errors.New("invitation already responded")
	ErrDuplicate        = errors.New("duplicate")
	ErrInUse            = errors.New("still referenced")
)

// sqliteTime is the layout used for every timestamp the stores write.
// It sorts lexically and matches CURRENT_TIMESTAMP defaults.
const sqliteTime = "2006-01-02 15:04:05"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTime)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
