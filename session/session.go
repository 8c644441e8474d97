package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danthegoodman1/tablesplit/gologger"
	"github.com/danthegoodman1/tablesplit/table"
	"github.com/danthegoodman1/tablesplit/utils"
)

var (
	logger = gologger.NewLogger()

	ErrSessionNotFound = errors.New("session not found")
)

// Session is the state of one upload: the table as uploaded, the edits the user chose,
// and the working table those edits produce. Lock it around reads and edits.
type Session struct {
	sync.Mutex

	ID         string
	SourceName string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Original *table.Table
	Edits    Edits
	Working  *table.Table
	Warnings []string
}

// New starts a session with default edits: every column kept, nothing added.
func New(sourceName string, original *table.Table, now time.Time) *Session {
	s := &Session{
		ID:         utils.GenRandomID("ses_"),
		SourceName: sourceName,
		CreatedAt:  now,
		UpdatedAt:  now,
		Original:   original,
		Edits:      Edits{Columns: original.Columns()},
		Working:    original.Clone(),
	}
	return s
}

// ApplyEdits replaces the session's edits and rebuilds the working table. On error the
// session is left as it was.
func (s *Session) ApplyEdits(e Edits, now time.Time) error {
	working, warnings, err := Apply(s.Original, e)
	if err != nil {
		return fmt.Errorf("error in Apply: %w", err)
	}
	s.Edits = e
	s.Working = working
	s.Warnings = warnings
	s.UpdatedAt = now
	return nil
}
