package infrastructure

import "sync"

// conversationLane serializes runs for one conversation.
type conversationLane struct {
	mu      sync.Mutex
	waiters int
}

// ConversationSequencer hands out one lane per conversation id so that runs for the
// same conversation execute one at a time while different conversations proceed
// in parallel. Idle lanes are dropped.
type ConversationSequencer struct {
	mu    sync.Mutex
	lanes map[string]*conversationLane
}

func NewConversationSequencer() *ConversationSequencer {
	return &ConversationSequencer{
		lanes: make(map[string]*conversationLane),
	}
}

// Acquire blocks until the lane for key is free. The returned func releases it and
// must be called exactly once.
func (s *ConversationSequencer) Acquire(key string) func() {
	s.mu.Lock()
	lane, exists := s.lanes[key]
	if !exists {
		lane = &conversationLane{}
		s.lanes[key] = lane
	}
	lane.waiters++
	s.mu.Unlock()

	lane.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			lane.mu.Unlock()

			s.mu.Lock()
			defer s.mu.Unlock()
			lane.waiters--
			if lane.waiters == 0 {
				delete(s.lanes, key)
			}
		})
	}
}

// Active returns the number of conversations with a running or waiting run.
func (s *ConversationSequencer) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lanes)
}
