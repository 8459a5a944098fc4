package params

import (
	"github.com/banshee-data/accel.report/internal/db"
	"github.com/banshee-data/accel.report/internal/monitoring"
)

// DefaultSQLitePath is used when no path is configured.
const DefaultSQLitePath = "params.db"

// SQLStore keeps params in SQLite with a change history.
type SQLStore struct {
	db *db.DB
}

// OpenSQLStore opens (and migrates) the database at path.
func OpenSQLStore(path string) (*SQLStore, error) {
	if path == "" {
		path = DefaultSQLitePath
	}
	d, err := db.NewDB(path)
	if err != nil {
		return nil, err
	}
	return &SQLStore{db: d}, nil
}

// DB exposes the underlying database for admin routes and history queries.
func (s *SQLStore) DB() *db.DB { return s.db }

func (s *SQLStore) Get(key string) (string, bool) {
	v, ok, err := s.db.GetParam(key)
	if err != nil {
		monitoring.Logf("params: %v", err)
		return "", false
	}
	return v, ok
}

func (s *SQLStore) Put(key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return s.db.PutParam(key, value)
}

func (s *SQLStore) Remove(key string) error {
	return s.db.DeleteParam(key)
}

func (s *SQLStore) Keys() ([]string, error) {
	rows, err := s.db.Params()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, r.Key)
	}
	return keys, nil
}

func (s *SQLStore) Close() error { return s.db.Close() }
