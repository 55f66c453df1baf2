package room

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"TripBoard/global"
)

type capturedEvent struct {
	event   string
	payload PresenceEvent
	targets []string // user ids
}

type captureNotifier struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (n *captureNotifier) Notify(targets []*global.Session, event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ids := make([]string, 0, len(targets))
	for _, s := range targets {
		ids = append(ids, s.UserID)
	}
	pe, _ := payload.(PresenceEvent)
	n.events = append(n.events, capturedEvent{event: event, payload: pe, targets: ids})
}

func (n *captureNotifier) all() []capturedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]capturedEvent, len(n.events))
	copy(out, n.events)
	return out
}

func newSess(connID, userID string) *global.Session {
	return global.NewSession(connID, userID, "name-"+userID, "avatar-"+userID)
}

func TestJoinReturnsRosterAndBroadcasts(t *testing.T) {
	n := &captureNotifier{}
	r := NewRegistry(Conf{Grace: time.Minute}, n)
	defer r.Close()

	alice := newSess("c1", "alice")
	roster := r.Join("trip-42", TypeConversation, alice)
	if len(roster) != 1 || roster[0].UserID != "alice" {
		t.Fatalf("expected roster=[alice], got %+v", roster)
	}
	if len(n.all()) != 0 {
		t.Fatalf("first join must not broadcast, got %+v", n.all())
	}

	bob := newSess("c2", "bob")
	roster = r.Join("trip-42", TypeConversation, bob)
	if len(roster) != 2 {
		t.Fatalf("expected roster of 2, got %+v", roster)
	}

	events := n.all()
	if len(events) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(events))
	}
	ev := events[0]
	if ev.event != EventUserJoined || ev.payload.UserID != "bob" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if len(ev.targets) != 1 || ev.targets[0] != "alice" {
		t.Fatalf("joined must broadcast to existing members only, got %v", ev.targets)
	}
}

func TestRejoinIsIdempotentOnMembership(t *testing.T) {
	n := &captureNotifier{}
	r := NewRegistry(Conf{Grace: time.Minute}, n)
	defer r.Close()

	r.Join("trip-42", TypeConversation, newSess("c1", "alice"))
	roster := r.Join("trip-42", TypeConversation, newSess("c9", "alice")) // 重连后的重入

	if len(roster) != 1 {
		t.Fatalf("rejoin must not duplicate membership, roster=%+v", roster)
	}
	if len(n.all()) != 0 {
		t.Fatalf("rejoin must not broadcast joined, got %+v", n.all())
	}
	// 成员指针换绑到新会话
	if got := r.MemberSession("trip-42", "alice"); got == nil || got.ConnID != "c9" {
		t.Fatalf("membership must rebind to the new session, got %+v", got)
	}
}

func TestLeaveRemovesAndBroadcasts(t *testing.T) {
	n := &captureNotifier{}
	r := NewRegistry(Conf{Grace: time.Minute}, n)
	defer r.Close()

	alice := newSess("c1", "alice")
	bob := newSess("c2", "bob")
	r.Join("trip-42", TypeConversation, alice)
	r.Join("trip-42", TypeConversation, bob)

	if !r.Leave("trip-42", bob) {
		t.Fatal("leave should report removal")
	}
	if r.IsMember("trip-42", "bob") {
		t.Fatal("bob still member after leave")
	}

	events := n.all()
	last := events[len(events)-1]
	if last.event != EventUserLeft || last.payload.UserID != "bob" {
		t.Fatalf("expected user_left{bob}, got %+v", last)
	}

	// 重复 leave 是无害空操作
	if r.Leave("trip-42", bob) {
		t.Fatal("second leave must be a no-op")
	}
}

func TestStaleLeaveDoesNotRemoveSupersedingSession(t *testing.T) {
	r := NewRegistry(Conf{Grace: time.Minute}, &captureNotifier{})
	defer r.Close()

	oldSess := newSess("c1", "alice")
	r.Join("trip-42", TypeConversation, oldSess)

	newer := newSess("c2", "alice")
	r.Join("trip-42", TypeConversation, newer)

	// 旧连接断开触发的迟到 leave
	if r.Leave("trip-42", oldSess) {
		t.Fatal("stale leave must not remove the superseding session")
	}
	if !r.IsMember("trip-42", "alice") {
		t.Fatal("alice must still be a member via the new session")
	}
}

func TestRosterEqualsJoinedMinusLeft(t *testing.T) {
	r := NewRegistry(Conf{Grace: time.Minute}, &captureNotifier{})
	defer r.Close()

	users := []string{"a", "b", "c", "d", "e"}
	sessions := make(map[string]*global.Session)
	for _, u := range users {
		sessions[u] = newSess("conn-"+u, u)
		r.Join("room-1", TypeDashboard, sessions[u])
	}
	r.Leave("room-1", sessions["b"])
	r.Leave("room-1", sessions["d"])

	roster := r.Roster("room-1")
	got := make(map[string]bool)
	for _, m := range roster {
		got[m.UserID] = true
	}
	want := map[string]bool{"a": true, "c": true, "e": true}
	if len(got) != len(want) {
		t.Fatalf("roster mismatch: got %v want %v", got, want)
	}
	for u := range want {
		if !got[u] {
			t.Fatalf("roster missing %s", u)
		}
	}
}

func TestBroadcastOrderMatchesMembershipOrder(t *testing.T) {
	n := &captureNotifier{}
	r := NewRegistry(Conf{Grace: time.Minute}, n)
	defer r.Close()

	r.Join("trip-42", TypeConversation, newSess("c0", "alice"))

	// 并发进出同一房间：广播在分片锁内入队，事件顺序必须等于成员表
	// 变更顺序。每个协程收尾都是 leave，bob 终态必然不在房间，因此
	// alice 最后看到的关于 bob 的事件必须是 user_left。
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess := newSess(fmt.Sprintf("bob-conn-%d", i), "bob")
			r.Join("trip-42", TypeConversation, sess)
			r.Leave("trip-42", sess)
		}(i)
	}
	wg.Wait()

	if r.IsMember("trip-42", "bob") {
		t.Fatal("bob should be gone after all leaves completed")
	}
	events := n.all()
	var last *capturedEvent
	for i := range events {
		if events[i].payload.UserID == "bob" {
			last = &events[i]
		}
	}
	if last == nil {
		t.Fatal("no presence broadcasts for bob recorded")
	}
	if last.event != EventUserLeft {
		t.Fatalf("alice last saw %s for bob but bob is not a member", last.event)
	}
}

func TestEmptyRoomPurgedAfterGrace(t *testing.T) {
	var mu sync.Mutex
	now := time.Now()
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}
	r := NewRegistry(Conf{Grace: 50 * time.Millisecond, Clock: clock}, &captureNotifier{})
	defer r.Close()

	alice := newSess("c1", "alice")
	r.Join("trip-42", TypeConversation, alice)
	r.Leave("trip-42", alice)

	// 宽限期内不清除：重入还能命中同一房间
	r.sweepOnce()
	sh := r.shardFor("trip-42")
	sh.mu.Lock()
	_, ok := sh.rooms["trip-42"]
	sh.mu.Unlock()
	if !ok {
		t.Fatal("room purged before grace elapsed")
	}

	advance(100 * time.Millisecond)
	r.sweepOnce()
	sh.mu.Lock()
	_, ok = sh.rooms["trip-42"]
	sh.mu.Unlock()
	if ok {
		t.Fatal("room not purged after grace")
	}
}
