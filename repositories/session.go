//go:generate go run go.uber.org/mock/mockgen -source=session.go -destination=../mocks/mock_session_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"chatd/domain"
	"chatd/errors"
)

type ISessionRepository interface {
	Create(subject uuid.UUID) (domain.Session, error)
	GetAndRenew(token uuid.UUID) (domain.Session, error)
	Delete(token uuid.UUID) error
}

// SessionRepository persists auth sessions under "session:<token>" keys.
// Sessions slide: every successful GetAndRenew rewrites the expiry to a full
// TTL from now. Expiry is enforced lazily on resolution; badger's own TTL is
// set to twice the window purely as garbage collection of keys nothing will
// ever resolve again.
type SessionRepository struct {
	db *badger.DB
}

func NewSessionRepository(db *badger.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

type sessionRecord struct {
	Token     uuid.UUID `json:"token"`
	Subject   uuid.UUID `json:"subject"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func sessionKey(token uuid.UUID) []byte { return []byte("session:" + token.String()) }

func (r *SessionRepository) Create(subject uuid.UUID) (domain.Session, error) {
	now := time.Now().UTC()
	record := sessionRecord{
		Token:     uuid.New(),
		Subject:   subject,
		CreatedAt: now,
		ExpiresAt: now.Add(domain.SessionTTL),
	}
	if err := r.put(record); err != nil {
		return domain.Session{}, err
	}
	return toSession(record), nil
}

// GetAndRenew resolves a token and extends its validity as a side effect.
// Unknown and expired tokens are indistinguishable to the caller: both are
// NotFound.
func (r *SessionRepository) GetAndRenew(token uuid.UUID) (domain.Session, error) {
	var record sessionRecord
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(token))
		if err != nil {
			if goerrors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: session", errors.ErrNotFound)
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err != nil {
		return domain.Session{}, err
	}

	now := time.Now().UTC()
	if now.After(record.ExpiresAt) {
		// Lazy expiry: the record stays until badger's TTL reaps it, but it
		// can never be resolved again.
		return domain.Session{}, fmt.Errorf("%w: session expired", errors.ErrNotFound)
	}

	record.ExpiresAt = now.Add(domain.SessionTTL)
	if err := r.put(record); err != nil {
		return domain.Session{}, err
	}
	return toSession(record), nil
}

func (r *SessionRepository) Delete(token uuid.UUID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(sessionKey(token))
	})
}

func (r *SessionRepository) put(record sessionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(sessionKey(record.Token), data).
			WithTTL(2 * domain.SessionTTL)
		return txn.SetEntry(entry)
	})
}

func toSession(record sessionRecord) domain.Session {
	return domain.Session{
		Token:     record.Token,
		Subject:   record.Subject,
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
	}
}
