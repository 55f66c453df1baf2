package ws

import (
	"testing"
	"time"

	"TripBoard/global"
)

func testClient(connID, userID string) *Client {
	return NewClient(global.NewSession(connID, userID, "name-"+userID, ""), nil, 8)
}

func TestBindSupersedesSameUser(t *testing.T) {
	m := NewConnManager()

	first := testClient("c1", "alice")
	if old := m.Bind(first); old != nil {
		t.Fatalf("first bind must not supersede anything, got %+v", old)
	}

	second := testClient("c2", "alice")
	old := m.Bind(second)
	if old == nil || old.ConnID != "c1" {
		t.Fatalf("second bind must return the superseded client, got %+v", old)
	}

	if got, ok := m.GetByUser("alice"); !ok || got.ConnID != "c2" {
		t.Fatalf("user index must point at the new connection, got %+v", got)
	}
	if _, ok := m.GetByConn("c1"); ok {
		t.Fatal("superseded connection must leave the conn index")
	}
	if m.CountOnline() != 1 {
		t.Fatalf("online = %d, want 1", m.CountOnline())
	}
}

func TestStaleRemoveKeepsNewBinding(t *testing.T) {
	m := NewConnManager()

	first := testClient("c1", "alice")
	m.Bind(first)
	second := testClient("c2", "alice")
	m.Bind(second)

	// 旧连接迟到的断开清理
	m.Remove(first)

	if got, ok := m.GetByUser("alice"); !ok || got.ConnID != "c2" {
		t.Fatalf("stale remove must not clear the new binding, got %+v ok=%v", got, ok)
	}

	m.Remove(second)
	if _, ok := m.GetByUser("alice"); ok {
		t.Fatal("alice should be fully removed")
	}
	if m.CountOnline() != 0 {
		t.Fatalf("online = %d, want 0", m.CountOnline())
	}
}

func TestDistinctUsersCoexist(t *testing.T) {
	m := NewConnManager()
	m.Bind(testClient("c1", "alice"))
	m.Bind(testClient("c2", "bob"))

	if m.CountOnline() != 2 {
		t.Fatalf("online = %d, want 2", m.CountOnline())
	}
	if _, ok := m.GetByUser("alice"); !ok {
		t.Fatal("alice missing")
	}
	if _, ok := m.GetByUser("bob"); !ok {
		t.Fatal("bob missing")
	}
}

func TestFanoutPreservesPerKeyOrder(t *testing.T) {
	f := NewFanout(4, 64)
	c := testClient("c1", "alice")

	const total = 20
	for i := 0; i < total; i++ {
		f.Broadcast("trip-42", []*Client{c}, []byte{byte(i)})
	}

	for i := 0; i < total; i++ {
		select {
		case got := <-c.Send:
			if len(got) != 1 || got[0] != byte(i) {
				t.Fatalf("out of order at %d: got %v", i, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for frame %d", i)
		}
	}
}
