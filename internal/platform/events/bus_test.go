package events

import (
	"sync"
	"testing"
	"time"
)

func TestBus_PublishDeliversInOrder(t *testing.T) {
	bus := NewBus[MonthSelected]()
	var got []string
	bus.Subscribe(func(ev MonthSelected) { got = append(got, "a:"+ev.Month.String()) })
	bus.Subscribe(func(ev MonthSelected) { got = append(got, "b:"+ev.Month.String()) })

	bus.Publish(MonthSelected{Year: 2025, Month: time.March})

	if len(got) != 2 || got[0] != "a:March" || got[1] != "b:March" {
		t.Fatalf("unexpected deliveries: %v", got)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus[Change]()
	calls := 0
	unsub := bus.Subscribe(func(Change) { calls++ })
	bus.Publish(Change{Collection: "billing_entries", Op: OpCreated})
	unsub()
	unsub()
	bus.Publish(Change{Collection: "billing_entries", Op: OpCreated})

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if bus.Len() != 0 {
		t.Errorf("expected no subscribers, got %d", bus.Len())
	}
}

func TestBus_UnsubscribeFromCallback(t *testing.T) {
	bus := NewBus[int]()
	var unsub func()
	calls := 0
	unsub = bus.Subscribe(func(int) {
		calls++
		unsub()
	})
	bus.Publish(1)
	bus.Publish(2)
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus[int]()
	var mu sync.Mutex
	sum := 0
	bus.Subscribe(func(n int) {
		mu.Lock()
		sum += n
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			bus.Publish(n)
		}(i)
	}
	wg.Wait()

	if sum != 5050 {
		t.Errorf("expected 5050, got %d", sum)
	}
}
