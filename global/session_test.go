package global

import (
	"sort"
	"testing"
)

func TestSessionJoinedSet(t *testing.T) {
	s := NewSession("c1", "alice", "Alice", "")

	if s.HasJoined("trip-42") {
		t.Fatal("fresh session should have no rooms")
	}

	s.MarkJoined("trip-42")
	s.MarkJoined("conv-1")
	s.MarkJoined("trip-42") // 重复标记幂等

	if !s.HasJoined("trip-42") || !s.HasJoined("conv-1") {
		t.Fatal("joined rooms missing")
	}

	rooms := s.JoinedRooms()
	sort.Strings(rooms)
	if len(rooms) != 2 || rooms[0] != "conv-1" || rooms[1] != "trip-42" {
		t.Fatalf("rooms = %v", rooms)
	}

	s.MarkLeft("trip-42")
	if s.HasJoined("trip-42") {
		t.Fatal("left room still marked joined")
	}
	s.MarkLeft("trip-42") // 重复离开无害
	if got := s.JoinedRooms(); len(got) != 1 || got[0] != "conv-1" {
		t.Fatalf("rooms = %v", got)
	}
}
