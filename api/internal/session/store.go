package session

import "sync"

// Store держит машины по chatID. Только память, ничего не сохраняется.
type Store struct {
	opts     []Option
	machines sync.Map // chatID -> *Machine
}

func NewStore(opts ...Option) *Store {
	return &Store{opts: opts}
}

// Get возвращает машину чата, создавая её при первом обращении.
func (s *Store) Get(chatID int64) *Machine {
	if v, ok := s.machines.Load(chatID); ok {
		return v.(*Machine)
	}
	v, _ := s.machines.LoadOrStore(chatID, New(s.opts...))
	return v.(*Machine)
}

// Drop забывает чат и гасит его таймеры.
func (s *Store) Drop(chatID int64) {
	if v, ok := s.machines.LoadAndDelete(chatID); ok {
		v.(*Machine).Close()
	}
}
