package badger

import (
	"fmt"

	"github.com/dgraph-io/badger/v2"
	"github.com/rs/zerolog"

	"github.com/witnessnet/witnessnet/storage/badger/operation"
)

// InitDB opens the badger database in dir, marking it with dbType on first use. A database of
// another type is refused.
func InitDB(log zerolog.Logger, dir string, dbType string) (*badger.DB, error) {
	opts := badger.
		DefaultOptions(dir).
		WithKeepL0InMemory(true).
		WithLogger(&logger{log: log.With().Str("component", "badger").Logger()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("could not open db in %s: %w", dir, err)
	}

	err = db.Update(operation.EnsureDBType(dbType))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("could not check db type: %w", err)
	}

	return db, nil
}

// logger adapts zerolog to the badger logger.
type logger struct {
	log zerolog.Logger
}

func (l *logger) Errorf(msg string, args ...interface{}) {
	l.log.Error().Msgf(msg, args...)
}

func (l *logger) Warningf(msg string, args ...interface{}) {
	l.log.Warn().Msgf(msg, args...)
}

func (l *logger) Infof(msg string, args ...interface{}) {
	l.log.Debug().Msgf(msg, args...)
}

func (l *logger) Debugf(msg string, args ...interface{}) {
	l.log.Trace().Msgf(msg, args...)
}
