package deque

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajrodado/workcrew/pkg/types"
)

func TestDeque_SingleThreadedReference(t *testing.T) {
	// Every operation sequence must match a plain slice-backed reference
	// deque when no concurrency is involved.
	type op struct {
		name  string
		value int
	}

	ops := []op{
		{"pushBack", 1},
		{"pushBack", 2},
		{"pushFront", 3},
		{"popBack", 0},
		{"pushBack", 4},
		{"popFront", 0},
		{"popFront", 0},
		{"pushFront", 5},
		{"popBack", 0},
		{"popFront", 0},
	}

	d := New[int]()
	var ref []int

	for i, o := range ops {
		switch o.name {
		case "pushBack":
			require.NoError(t, d.PushBack(o.value))
			ref = append(ref, o.value)
		case "pushFront":
			require.NoError(t, d.PushFront(o.value))
			ref = append([]int{o.value}, ref...)
		case "popBack":
			got, err := d.PopBack()
			require.NoError(t, err, "op %d", i)
			want := ref[len(ref)-1]
			ref = ref[:len(ref)-1]
			assert.Equal(t, want, got, "op %d", i)
		case "popFront":
			got, err := d.PopFront()
			require.NoError(t, err, "op %d", i)
			want := ref[0]
			ref = ref[1:]
			assert.Equal(t, want, got, "op %d", i)
		}
		assert.Equal(t, len(ref), d.Size(), "op %d", i)
	}

	assert.True(t, d.IsEmpty())
}

func TestDeque_FIFOPerEnd(t *testing.T) {
	d := New[int]()
	for i := 0; i < 100; i++ {
		require.NoError(t, d.PushBack(i))
	}
	for i := 0; i < 100; i++ {
		v, err := d.PopFront()
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
}

func TestDeque_GrowthAcrossWraparound(t *testing.T) {
	// Alternate front pushes and back pops past the initial buffer size so
	// the ring wraps and regrows.
	d := New[int]()
	for i := 0; i < 1000; i++ {
		require.NoError(t, d.PushFront(i))
		if i%3 == 0 {
			_, err := d.PopBack()
			require.NoError(t, err)
		}
	}
	assert.Equal(t, 1000-334, d.Size())
}

func TestDeque_NonBlockingPopEmpty(t *testing.T) {
	d := New[string]()

	start := time.Now()
	_, err := d.PopFront()
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, types.ErrEmpty)
	// The non-blocking variant must never touch the condition variable.
	assert.Less(t, elapsed, 5*time.Millisecond)

	_, err = d.PopBack()
	assert.ErrorIs(t, err, types.ErrEmpty)

	_, ok := d.TryPopFront()
	assert.False(t, ok)
	_, ok = d.TryPopBack()
	assert.False(t, ok)
}

func TestDeque_BoundedCapacity(t *testing.T) {
	d := NewWithCapacity[int](2)
	assert.Equal(t, 2, d.Cap())

	require.NoError(t, d.PushBack(1))
	require.NoError(t, d.PushFront(2))

	assert.ErrorIs(t, d.PushBack(3), types.ErrFull)
	assert.ErrorIs(t, d.PushFront(3), types.ErrFull)

	// Popping frees a slot again.
	_, err := d.PopBack()
	require.NoError(t, err)
	assert.NoError(t, d.PushBack(3))
}

func TestDeque_PushAfterClose(t *testing.T) {
	d := New[int]()
	require.NoError(t, d.PushBack(1))
	d.Close()

	assert.ErrorIs(t, d.PushBack(2), types.ErrClosed)
	assert.ErrorIs(t, d.PushFront(2), types.ErrClosed)
	assert.True(t, d.IsClosed())
}

func TestDeque_DrainAfterClose(t *testing.T) {
	d := New[int]()
	for i := 0; i < 5; i++ {
		require.NoError(t, d.PushBack(i))
	}
	d.Close()

	// Blocking pops keep draining in FIFO order, then report closure.
	for i := 0; i < 5; i++ {
		v, err := d.WaitPopFront()
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}

	_, err := d.WaitPopFront()
	assert.ErrorIs(t, err, types.ErrClosed)
	_, err = d.PopFront()
	assert.ErrorIs(t, err, types.ErrClosed)
	_, ok := d.TryPopFront()
	assert.False(t, ok)
}

func TestDeque_CloseIdempotent(t *testing.T) {
	d := New[int]()
	d.Close()
	d.Close()
	assert.True(t, d.IsClosed())
}

func TestDeque_WaitPopBlocksUntilPush(t *testing.T) {
	d := New[int]()

	type result struct {
		value   int
		err     error
		elapsed time.Duration
	}
	resultCh := make(chan result, 1)

	start := time.Now()
	go func() {
		v, err := d.WaitPopFront()
		resultCh <- result{value: v, err: err, elapsed: time.Since(start)}
	}()

	// Nothing pushed yet: the pop must not return early.
	select {
	case r := <-resultCh:
		t.Fatalf("WaitPopFront returned early with (%v, %v)", r.value, r.err)
	case <-time.After(200 * time.Millisecond):
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = d.PushBack(42)
	}()

	select {
	case r := <-resultCh:
		require.NoError(t, r.err)
		assert.Equal(t, 42, r.value)
		assert.GreaterOrEqual(t, r.elapsed, 300*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitPopFront did not return after push")
	}
}

func TestDeque_WaitPopWokenByClose(t *testing.T) {
	d := New[int]()

	const waiters = 4
	errCh := make(chan error, waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			_, err := d.WaitPopBack()
			errCh <- err
		}()
	}

	time.Sleep(50 * time.Millisecond)
	d.Close()

	for i := 0; i < waiters; i++ {
		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, types.ErrClosed)
		case <-time.After(time.Second):
			t.Fatal("waiter not woken by Close")
		}
	}
}

func TestDeque_ConcurrentMultisetEquality(t *testing.T) {
	// P producers push disjoint tagged values, C consumers pop them all:
	// the popped multiset must equal the pushed multiset exactly.
	const (
		producers        = 4
		consumers        = 3
		countPerProducer = 500
	)

	d := New[int]()
	var consumed sync.Map
	var duplicates int64

	var consumerWg sync.WaitGroup
	consumerWg.Add(consumers)
	for i := 0; i < consumers; i++ {
		go func(ci int) {
			defer consumerWg.Done()
			for {
				var v int
				var err error
				if ci%2 == 0 {
					v, err = d.WaitPopFront()
				} else {
					v, err = d.WaitPopBack()
				}
				if err != nil {
					return
				}
				if _, loaded := consumed.LoadOrStore(v, true); loaded {
					atomic.AddInt64(&duplicates, 1)
				}
			}
		}(i)
	}

	var producerWg sync.WaitGroup
	producerWg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer producerWg.Done()
			for i := 0; i < countPerProducer; i++ {
				tagged := p*countPerProducer + i
				var err error
				if i%2 == 0 {
					err = d.PushBack(tagged)
				} else {
					err = d.PushFront(tagged)
				}
				assert.NoError(t, err)
			}
		}(p)
	}

	producerWg.Wait()
	d.Close()
	consumerWg.Wait()

	assert.Zero(t, atomic.LoadInt64(&duplicates), "values popped more than once")

	total := 0
	consumed.Range(func(key, value interface{}) bool {
		total++
		return true
	})
	assert.Equal(t, producers*countPerProducer, total, "values lost")
	assert.True(t, d.IsEmpty())
}

func TestDeque_Clear(t *testing.T) {
	d := New[int]()
	for i := 0; i < 10; i++ {
		require.NoError(t, d.PushBack(i))
	}

	assert.Equal(t, 10, d.Clear())
	assert.True(t, d.IsEmpty())
	assert.Equal(t, 0, d.Clear())

	// Clear is allowed on a closed deque.
	require.NoError(t, d.PushBack(1))
	d.Close()
	assert.Equal(t, 1, d.Clear())
	_, err := d.WaitPopFront()
	assert.ErrorIs(t, err, types.ErrClosed)
}

type countingSink struct {
	pushes  int64
	pops    int64
	closes  int64
	cleared int64
}

func (s *countingSink) OnPush(End)    { atomic.AddInt64(&s.pushes, 1) }
func (s *countingSink) OnPop(End)     { atomic.AddInt64(&s.pops, 1) }
func (s *countingSink) OnClose()      { atomic.AddInt64(&s.closes, 1) }
func (s *countingSink) OnClear(n int) { atomic.AddInt64(&s.cleared, int64(n)) }

func TestDeque_EventSink(t *testing.T) {
	sink := &countingSink{}
	d := New[int]()
	d.SetSink(sink)

	require.NoError(t, d.PushBack(1))
	require.NoError(t, d.PushFront(2))
	_, err := d.PopBack()
	require.NoError(t, err)
	_, ok := d.TryPopFront()
	require.True(t, ok)
	d.Close()
	d.Close()

	assert.Equal(t, int64(2), atomic.LoadInt64(&sink.pushes))
	assert.Equal(t, int64(2), atomic.LoadInt64(&sink.pops))
	assert.Equal(t, int64(1), atomic.LoadInt64(&sink.closes), "OnClose fires once")
}

func TestDeque_EventSinkClear(t *testing.T) {
	sink := &countingSink{}
	d := New[int]()
	d.SetSink(sink)

	for i := 0; i < 3; i++ {
		require.NoError(t, d.PushBack(i))
	}

	assert.Equal(t, 3, d.Clear())
	assert.Equal(t, int64(3), atomic.LoadInt64(&sink.cleared))

	// An empty Clear reports nothing.
	assert.Equal(t, 0, d.Clear())
	assert.Equal(t, int64(3), atomic.LoadInt64(&sink.cleared))
}

func TestEnd_String(t *testing.T) {
	assert.Equal(t, "front", Front.String())
	assert.Equal(t, "back", Back.String())
	assert.Equal(t, "unknown", End(7).String())
}

func BenchmarkDeque_PushPopBack(b *testing.B) {
	d := New[int]()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = d.PushBack(i)
		_, _ = d.PopBack()
	}
}

func BenchmarkDeque_ProducerConsumer(b *testing.B) {
	d := New[int]()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, err := d.WaitPopFront(); err != nil {
				return
			}
		}
	}()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_ = d.PushBack(i)
			i++
		}
	})
	b.StopTimer()

	d.Close()
	<-done
}

func ExampleDeque() {
	d := New[string]()
	_ = d.PushBack("first")
	_ = d.PushBack("second")
	d.Close()

	for {
		v, err := d.WaitPopFront()
		if err != nil {
			break
		}
		fmt.Println(v)
	}
	// Output:
	// first
	// second
}
