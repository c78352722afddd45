package snapshot

import (
	"encoding/json"
	"errors"

	"github.com/cockroachdb/pebble"

	"chatwindow/internal/domain"
	"chatwindow/pkg/logger"
)

const pageKey = "chat:page:current"

// Store persists the reconciled page window locally so a restart can render
// history before the first fetch completes. Placeholder edges are stripped on
// save: a temp record belongs to the session that created it.
type Store struct {
	db  *pebble.DB
	log *logger.Logger
}

// Open opens (or creates) the snapshot database at path.
func Open(path string, log *logger.Logger) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		log.Errorf("snapshot open failed path=%s: %v", path, err)
		return nil, err
	}
	log.Infof("snapshot opened path=%s", path)
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Save writes the page, minus temp edges, under the single window key.
func (s *Store) Save(page domain.MessagePage) error {
	persisted := page.Clone()
	kept := persisted.Edges[:0]
	for _, e := range persisted.Edges {
		if e.Node.IsTemp() {
			continue
		}
		kept = append(kept, e)
	}
	persisted.Edges = kept

	data, err := json.Marshal(persisted)
	if err != nil {
		return err
	}
	return s.db.Set([]byte(pageKey), data, pebble.Sync)
}

// Load returns the saved page, or ok=false when none has been written yet.
func (s *Store) Load() (domain.MessagePage, bool, error) {
	data, closer, err := s.db.Get([]byte(pageKey))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return domain.MessagePage{}, false, nil
		}
		return domain.MessagePage{}, false, err
	}
	defer closer.Close()

	var page domain.MessagePage
	if err := json.Unmarshal(data, &page); err != nil {
		return domain.MessagePage{}, false, err
	}
	return page, true, nil
}
