// Package session хранит состояние диалога регистрации per-пользователь.
package session

import "sync"

// State — шаг диалога, на котором находится пользователь.
type State string

const (
	StateIdle            State = "idle"
	StateAwaitingConsent State = "awaiting_consent"
	StateQuestionnaire   State = "questionnaire"
	StateEditingProfile  State = "editing_profile"
	StateCompleted       State = "completed"
)

// Session — состояние диалога одного пользователя: текущий шаг,
// индекс вопроса анкеты и накопленные черновые ответы.
type Session struct {
	TelegramID int64
	State      State
	Step       int
	Answers    map[string]string
}

// Store — хранилище сессий диалога, ключ — telegram id пользователя.
type Store interface {
	Get(telegramID int64) (Session, bool)
	Put(sess Session)
	Delete(telegramID int64)
}

// MemoryStore — потокобезопасное хранилище сессий в памяти процесса.
// Состояние диалога восстановимо (пользователь начнет заново), поэтому
// переживать рестарт ему не нужно.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

// NewMemoryStore создает пустое хранилище сессий.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]Session)}
}

func (s *MemoryStore) Get(telegramID int64) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[telegramID]
	return sess, ok
}

func (s *MemoryStore) Put(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.TelegramID] = sess
}

func (s *MemoryStore) Delete(telegramID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, telegramID)
}
