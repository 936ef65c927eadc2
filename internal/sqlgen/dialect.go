package sqlgen

import (
	"fmt"
	"strings"

	"github.com/roach88/querykit/internal/query"
)

// Dialect holds the vendor-specific spellings the generator needs.
type Dialect struct {
	Name string

	// Quote opens and closes quoted identifiers.
	Quote string

	// Lock suffixes, appended after LIMIT. Empty means the dialect has no
	// row-level lock clause for that mode.
	LockRead        string
	LockWrite       string
	LockWriteNoWait string
}

var (
	// MySQL quotes with backticks and supports shared, exclusive and
	// no-wait exclusive row locks.
	MySQL = Dialect{
		Name:            "mysql",
		Quote:           "`",
		LockRead:        " FOR SHARE",
		LockWrite:       " FOR UPDATE",
		LockWriteNoWait: " FOR UPDATE NOWAIT",
	}

	// SQLite locks whole databases, not rows, so lock types render nothing.
	SQLite = Dialect{
		Name:  "sqlite",
		Quote: `"`,
	}
)

// DialectByName returns the dialect registered under name.
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", MySQL.Name:
		return MySQL, nil
	case SQLite.Name, "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unknown dialect %q (valid: mysql, sqlite)", name)
	}
}

// QuoteIdent quotes an identifier, doubling embedded quote characters.
func (d Dialect) QuoteIdent(name string) string {
	return d.Quote + strings.ReplaceAll(name, d.Quote, d.Quote+d.Quote) + d.Quote
}

// LockSuffix returns the clause appended for lock.
func (d Dialect) LockSuffix(lock query.LockType) (string, error) {
	switch lock {
	case query.LockNone:
		return "", nil
	case query.LockRead:
		return d.LockRead, nil
	case query.LockWrite:
		return d.LockWrite, nil
	case query.LockWriteNoWait:
		return d.LockWriteNoWait, nil
	default:
		return "", fmt.Errorf("unknown lock type %v", lock)
	}
}
