package history

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turingvideo/couchbase-lite-core/core/diag"
)

func TestRecorder_eviction(t *testing.T) {
	var reg diag.Registry
	r := New(5, WithRegistry(&reg))

	for i := 0; i < 8; i++ {
		r.Record(Enqueue, fmt.Sprintf("call-%d", i))
	}
	r.Record(Execution, "exec-0")

	entries := r.Entries(Enqueue)
	require.Len(t, entries, 5)
	assert.Equal(t, "call-3", entries[0].Description)
	assert.Equal(t, "call-7", entries[4].Description)

	assert.Equal(t, uint64(3), r.Truncated(Enqueue))
	assert.Equal(t, uint64(0), r.Truncated(Execution))
	assert.Equal(t, uint64(3), reg.TruncatedEnqueue())
	assert.Equal(t, uint64(0), reg.TruncatedExecuted())
}

func TestRecorder_sequencesIndependent(t *testing.T) {
	r := New(2, WithRegistry(&diag.Registry{}))
	r.Record(Execution, "a")
	r.Record(Execution, "b")
	r.Record(Execution, "c")
	r.Record(Enqueue, "x")

	assert.Len(t, r.Entries(Enqueue), 1)
	assert.Len(t, r.Entries(Execution), 2)
	assert.Equal(t, uint64(1), r.Truncated(Execution))

	last, ok := r.Last(Execution)
	require.True(t, ok)
	assert.Equal(t, "c", last.Description)

	_, ok = New(1).Last(Enqueue)
	assert.False(t, ok)
}

func TestRecorder_dump(t *testing.T) {
	start := time.Unix(1000, 0)
	r := New(2, WithStart(start), WithRegistry(&diag.Registry{}))
	r.RecordAt(Enqueue, "db::save [from goroutine 7]", start.Add(1500*time.Microsecond))
	r.RecordAt(Enqueue, "db::load [from goroutine 7]", start.Add(2*time.Millisecond))
	r.RecordAt(Enqueue, "db::close [from goroutine 8]", start.Add(3*time.Millisecond))
	r.RecordAt(Execution, "db::save [on lane-1 (12)]", start.Add(4*time.Millisecond))

	var sb strings.Builder
	require.NoError(t, r.Dump(&sb))

	want := "List of enqueue calls:\n" +
		"\t...1 truncated frames...\n" +
		"\t[2.000 ms] db::load [from goroutine 7]\n" +
		"\t[3.000 ms] db::close [from goroutine 8]\n" +
		"Resulting execution calls:\n" +
		"\t[4.000 ms] db::save [on lane-1 (12)]\n"
	assert.Equal(t, want, sb.String())
}

func TestRecorder_concurrent(t *testing.T) {
	var reg diag.Registry
	r := New(50, WithRegistry(&reg))

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				r.Record(Enqueue, "e")
				r.Record(Execution, "x")
				if i%10 == 0 {
					_ = r.Dump(&strings.Builder{})
				}
			}
		}()
	}
	wg.Wait()

	assert.Len(t, r.Entries(Enqueue), 50)
	assert.Equal(t, uint64(750), r.Truncated(Enqueue))
	assert.Equal(t, uint64(750), r.Truncated(Execution))
	assert.Equal(t, uint64(750), reg.TruncatedExecuted())
}

func TestRecorder_defaults(t *testing.T) {
	r := New(0)
	assert.Equal(t, DefaultLimit, r.Limit())
	r.Record(Kind(9), "ignored")
	assert.Nil(t, r.Entries(Kind(9)))
	assert.Equal(t, "execution", Execution.String())
}

func TestRecorder_ringWrapsInOrder(t *testing.T) {
	r := New(3, WithRegistry(&diag.Registry{}))

	for i := 0; i < 10; i++ {
		r.Record(Execution, fmt.Sprintf("e%d", i))

		entries := r.Entries(Execution)
		first := max(0, i-2)
		require.Len(t, entries, i-first+1)
		for j, e := range entries {
			require.Equal(t, fmt.Sprintf("e%d", first+j), e.Description)
		}

		last, ok := r.Last(Execution)
		require.True(t, ok)
		require.Equal(t, fmt.Sprintf("e%d", i), last.Description)
	}
	require.Equal(t, uint64(7), r.Truncated(Execution))

	var sb strings.Builder
	require.NoError(t, r.Dump(&sb))
	out := sb.String()
	require.Contains(t, out, "\t...7 truncated frames...\n")
	require.Less(t, strings.Index(out, "] e7\n"), strings.Index(out, "] e9\n"))
}
