package session

import (
	"testing"
	"time"

	"github.com/meetinsight/service/internal/models"
)

func TestAppendAndHistory(t *testing.T) {
	s := NewStore(time.Minute, 0)
	defer s.Close()

	s.Append("sess-1", Turn{ModelUsed: models.ModelApertus, Tasks: 2})
	s.Append("sess-1", Turn{ModelUsed: models.ModelLocal, Tasks: 1})
	s.Append("sess-2", Turn{ModelUsed: models.ModelApertus})

	h := s.History("sess-1")
	if len(h) != 2 {
		t.Fatalf("History(sess-1) has %d turns, want 2", len(h))
	}
	if h[0].Tasks != 2 || h[1].ModelUsed != models.ModelLocal {
		t.Errorf("turn order wrong: %+v", h)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	s := NewStore(time.Minute, 0)
	defer s.Close()

	s.Append("sess", Turn{Tasks: 1})
	h := s.History("sess")
	h[0].Tasks = 99

	if s.History("sess")[0].Tasks != 1 {
		t.Error("History exposed internal state")
	}
}

func TestMaxTurnsCap(t *testing.T) {
	s := NewStore(time.Minute, 3)
	defer s.Close()

	for i := 0; i < 5; i++ {
		s.Append("sess", Turn{Tasks: i})
	}

	h := s.History("sess")
	if len(h) != 3 {
		t.Fatalf("got %d turns, want 3", len(h))
	}
	if h[0].Tasks != 2 || h[2].Tasks != 4 {
		t.Errorf("wrong turns kept: %+v", h)
	}
}

func TestEvictExpired(t *testing.T) {
	s := NewStore(10*time.Millisecond, 0)
	defer s.Close()

	s.Append("old", Turn{})
	time.Sleep(20 * time.Millisecond)
	s.evictExpired()

	if s.Len() != 0 {
		t.Errorf("Len() = %d after eviction, want 0", s.Len())
	}
	if h := s.History("old"); len(h) != 0 {
		t.Errorf("History(old) = %v after eviction, want empty", h)
	}
}

func TestDelete(t *testing.T) {
	s := NewStore(time.Minute, 0)
	defer s.Close()

	s.Append("sess", Turn{})
	s.Delete("sess")
	if s.Len() != 0 {
		t.Error("session survived Delete")
	}
}
