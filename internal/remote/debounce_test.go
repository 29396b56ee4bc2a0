package remote

import (
	"sync/atomic"
	"testing"
	"time"

	"postit/internal/clock"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_LastWriteWins(t *testing.T) {
	fake := clock.NewFake()
	d := newDebouncer(fake, 300*time.Millisecond)

	var got atomic.Value
	var runs atomic.Int32
	for _, v := range []string{"a", "b", "c"} {
		d.schedule("k", func() {
			runs.Add(1)
			got.Store(v)
		})
		fake.Advance(299 * time.Millisecond)
	}
	assert.Equal(t, int32(0), runs.Load(), "every edit restarts the window")

	fake.Advance(time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, "c", got.Load())
	assert.Equal(t, 0, d.pending())
}

func TestDebouncer_CancelAndFlush(t *testing.T) {
	fake := clock.NewFake()
	d := newDebouncer(fake, time.Second)

	var runs atomic.Int32
	d.schedule("a", func() { runs.Add(1) })
	d.schedule("b", func() { runs.Add(10) })
	d.cancel("a")
	d.cancel("missing")
	assert.Equal(t, 1, d.pending())

	d.flush()
	assert.Equal(t, int32(10), runs.Load())
	assert.Equal(t, 0, fake.Pending())

	fake.Advance(time.Minute)
	assert.Equal(t, int32(10), runs.Load())
}

func TestDebouncer_FlushWaitsForFiringCallback(t *testing.T) {
	fake := clock.NewFake()
	d := newDebouncer(fake, time.Second)

	started := make(chan struct{})
	release := make(chan struct{})
	d.schedule("a", func() {
		close(started)
		<-release
	})
	go fake.Advance(time.Second)
	<-started

	flushed := make(chan struct{})
	go func() {
		d.flush()
		close(flushed)
	}()

	select {
	case <-flushed:
		t.Fatal("flush returned while a fired callback was still running")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case <-flushed:
	case <-time.After(time.Second):
		t.Fatal("flush did not return after the callback finished")
	}
	assert.Equal(t, 0, d.pending())
}
