package dedup

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestShouldProcess_TTL(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	d := New(time.Minute, 10).WithClock(clk.Now)

	if !d.ShouldProcess("Nlow") {
		t.Fatal("first sighting should be processed")
	}
	if d.ShouldProcess("Nlow") {
		t.Fatal("repeat within ttl should be skipped")
	}
	clk.Advance(61 * time.Second)
	if !d.ShouldProcess("Nlow") {
		t.Fatal("expired key should be processed again")
	}
}

func TestForget(t *testing.T) {
	d := New(time.Hour, 10)
	d.ShouldProcess("KHigh")
	d.Forget("KHigh")
	if !d.ShouldProcess("KHigh") {
		t.Fatal("forgotten key should be processed")
	}
}

func TestEmptyKeyAlwaysProcessed(t *testing.T) {
	d := New(time.Hour, 10)
	if !d.ShouldProcess("") || !d.ShouldProcess("") {
		t.Fatal("empty key should never be deduplicated")
	}
}

func TestBoundedSize(t *testing.T) {
	d := New(time.Hour, 5)
	for i := 0; i < 20; i++ {
		d.ShouldProcess(fmt.Sprintf("k%d", i))
	}
	if d.Len() > 5 {
		t.Fatalf("expected at most 5 entries, got %d", d.Len())
	}
}

func TestConcurrentSameKey(t *testing.T) {
	d := New(time.Hour, 10)
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d.ShouldProcess("PHigh") {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}
