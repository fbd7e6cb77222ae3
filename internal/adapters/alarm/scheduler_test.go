package alarm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func recv(t *testing.T, s *Scheduler, within time.Duration) string {
	t.Helper()
	select {
	case name := <-s.Fired():
		return name
	case <-time.After(within):
		t.Fatal("alarm did not fire")
		return ""
	}
}

func TestScheduler_OneShot(t *testing.T) {
	s := NewScheduler(4)
	defer s.Close()

	s.Create("once", 10*time.Millisecond, 0)
	assert.Equal(t, "once", recv(t, s, time.Second))

	require.Eventually(t, func() bool { return len(s.Pending()) == 0 }, time.Second, 5*time.Millisecond)
	select {
	case name := <-s.Fired():
		t.Fatalf("one-shot alarm fired again: %s", name)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestScheduler_Periodic(t *testing.T) {
	s := NewScheduler(4)
	defer s.Close()

	s.Create("tick", time.Millisecond, 10*time.Millisecond)
	for i := 0; i < 3; i++ {
		assert.Equal(t, "tick", recv(t, s, time.Second))
	}
}

func TestScheduler_Clear(t *testing.T) {
	s := NewScheduler(4)
	defer s.Close()

	s.Create("later", 50*time.Millisecond, 0)
	s.Clear("later")
	s.Clear("unknown")
	assert.Empty(t, s.Pending())

	select {
	case name := <-s.Fired():
		t.Fatalf("cleared alarm fired: %s", name)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestScheduler_CreateReplaces(t *testing.T) {
	s := NewScheduler(4)
	defer s.Close()

	s.Create("sync", time.Hour, time.Hour)
	s.Create("sweep", time.Hour, time.Hour)
	s.Create("sweep", 50*time.Millisecond, 0)
	assert.Equal(t, []string{"sweep", "sync"}, s.Pending())
	assert.Equal(t, "sweep", recv(t, s, time.Second))
}

func TestScheduler_SlowConsumerDropsTicks(t *testing.T) {
	s := NewScheduler(1)
	defer s.Close()

	s.Create("fast", time.Millisecond, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, len(s.Fired()))
}

func TestScheduler_CloseIsIdempotent(t *testing.T) {
	s := NewScheduler(1)
	s.Create("a", time.Hour, 0)
	s.Create("b", time.Hour, time.Hour)
	s.Close()
	s.Close()

	s.Create("c", time.Millisecond, 0)
	assert.Empty(t, s.Pending(), "create after close is ignored")
}
