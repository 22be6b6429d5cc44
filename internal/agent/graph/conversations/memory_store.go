package conversations

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/Natthapon12-yod/smartatsai/internal/agent/model"
	logx "github.com/Natthapon12-yod/smartatsai/pkg/logger"
)

// MemoryStore keeps sessions in process memory. The map is guarded by one
// mutex and every session carries its own, so different identities never
// contend while a single identity's appends are serialised.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
	limit    int
}

type memorySession struct {
	mu       sync.Mutex
	messages []*schema.Message
}

func NewMemoryStore(limit int) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memorySession),
		limit:    normalizeLimit(limit),
	}
}

func (s *MemoryStore) lookup(identity string) (*memorySession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[identity]
	return sess, ok
}

func (s *MemoryStore) GetOrCreate(_ context.Context, identity string, systemPrompt string) (*model.Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[identity]
	if !ok {
		sess = &memorySession{messages: []*schema.Message{schema.SystemMessage(systemPrompt)}}
		s.sessions[identity] = sess
		logx.Debug().Str("identity", identity).Msg("session created")
	}
	s.mu.Unlock()

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := validate(sess.messages); err != nil {
		return nil, err
	}
	return &model.Session{Identity: identity, Messages: cloneMessages(sess.messages)}, nil
}

func (s *MemoryStore) Append(_ context.Context, identity string, message *schema.Message) error {
	sess, ok := s.lookup(identity)
	if !ok {
		return model.ErrSessionNotFound
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := validate(sess.messages); err != nil {
		return err
	}
	sess.push(message, s.limit)
	return nil
}

func (s *MemoryStore) AppendTurn(_ context.Context, identity string, user, assistant *schema.Message) error {
	sess, ok := s.lookup(identity)
	if !ok {
		return model.ErrSessionNotFound
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := validate(sess.messages); err != nil {
		return err
	}
	sess.push(user, s.limit)
	sess.push(assistant, s.limit)
	return nil
}

func (s *MemoryStore) History(_ context.Context, identity string) ([]*schema.Message, error) {
	sess, ok := s.lookup(identity)
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := validate(sess.messages); err != nil {
		return nil, err
	}
	return cloneMessages(sess.messages), nil
}

// Reset rewrites an existing session in place under its own lock, so an
// append that already holds the session pointer lands after the reset.
func (s *MemoryStore) Reset(_ context.Context, identity string, systemPrompt string) error {
	s.mu.Lock()
	sess, ok := s.sessions[identity]
	if !ok {
		sess = &memorySession{}
		s.sessions[identity] = sess
	}
	s.mu.Unlock()

	sess.mu.Lock()
	sess.messages = []*schema.Message{schema.SystemMessage(systemPrompt)}
	sess.mu.Unlock()
	logx.Info().Str("identity", identity).Msg("session reset")
	return nil
}

// push must be called with the session lock held.
func (m *memorySession) push(msg *schema.Message, limit int) {
	if msg == nil {
		return
	}
	c := *msg
	m.messages = trimTail(append(m.messages, &c), limit)
}

var _ model.SessionStore = (*MemoryStore)(nil)
