package session

import "testing"

func TestStoreGetCreatesOnce(t *testing.T) {
	s := NewStore()
	a := s.Get(1)
	if s.Get(1) != a {
		t.Fatal("Get returned a different machine for the same chat")
	}
	if s.Get(2) == a {
		t.Fatal("chats share a machine")
	}
	_ = a.Navigate(RiskMaps)
	s.Drop(1)
	if s.Get(1).Screen() != Welcome {
		t.Fatal("dropped chat kept its state")
	}
}
