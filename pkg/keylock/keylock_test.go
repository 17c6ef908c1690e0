package keylock

import (
	"sync"
	"testing"
	"time"
)

func TestKeyLock_SameKeySerial(t *testing.T) {
	kl := New()

	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup

	kl.Lock("user:1")
	wg.Add(1)
	go func() {
		defer wg.Done()
		kl.Lock("user:1")
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
		kl.Unlock("user:1")
	}()

	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	order = append(order, 1)
	mu.Unlock()
	kl.Unlock("user:1")
	wg.Wait()

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("same key not serialized, order = %v", order)
	}
}

func TestKeyLock_DifferentKeysParallel(t *testing.T) {
	kl := New()

	kl.Lock("user:1")
	done := make(chan struct{})
	go func() {
		// 不同key不应被阻塞
		kl.Lock("user:2")
		kl.Unlock("user:2")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("different keys blocked each other")
	}
	kl.Unlock("user:1")
}

func TestKeyLock_UnlockUnlocked(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("unlock of unlocked key should panic")
		}
	}()
	New().Unlock("user:1")
}

func TestKeyLock_Counter(t *testing.T) {
	kl := New()
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kl.Lock("k")
			counter++
			kl.Unlock("k")
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("counter = %d, want 50", counter)
	}
}
