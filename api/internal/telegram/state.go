package telegram

import "sync"

// screenMsgs: chatID -> messageID сообщения, в котором живёт текущий экран.
type screenMsgs struct{ m sync.Map }

func (s *screenMsgs) get(chatID int64) (int, bool) {
	if v, ok := s.m.Load(chatID); ok {
		return v.(int), true
	}
	return 0, false
}

func (s *screenMsgs) set(chatID int64, msgID int) { s.m.Store(chatID, msgID) }
func (s *screenMsgs) forget(chatID int64)         { s.m.Delete(chatID) }

// shareItem: то, что бот отдаст в inline-режиме при системном share.
type shareItem struct {
	Title string
	Text  string
}
