package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rocketscienceinc/tictactoe-minimax/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-minimax/internal/entity"
)

// SessionStore keeps sessions as JSON in memory, so reads never alias writes,
// the same way the redis repository behaves.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string][]byte)}
}

func (that *SessionStore) CreateOrUpdate(_ context.Context, session *entity.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	that.sessions[session.ID] = data

	return nil
}

func (that *SessionStore) GetByID(_ context.Context, id string) (*entity.Session, error) {
	that.mu.Lock()
	data, ok := that.sessions[id]
	that.mu.Unlock()

	if !ok {
		return nil, apperror.ErrGameNotFound
	}

	var session entity.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

func (that *SessionStore) DeleteByID(_ context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.sessions[id]; !ok {
		return apperror.ErrGameNotFound
	}

	delete(that.sessions, id)

	return nil
}
