package poll

import (
	"errors"
	"testing"
)

func TestRegistry_PanickingSubscriberDoesNotBlockOthers(t *testing.T) {
	r := NewRegistry[int](nil)

	var order []string
	r.Subscribe("prices", func(v int) error {
		order = append(order, "first")
		return nil
	})
	r.Subscribe("prices", func(v int) error {
		order = append(order, "panics")
		panic("boom")
	})
	r.Subscribe("prices", func(v int) error {
		order = append(order, "errors")
		return errors.New("render failed")
	})
	r.Subscribe("prices", func(v int) error {
		order = append(order, "last")
		return nil
	})

	err := r.Broadcast("prices", 7)
	if err == nil {
		t.Fatal("expected joined error from failing subscribers")
	}

	want := []string{"first", "panics", "errors", "last"}
	if len(order) != len(want) {
		t.Fatalf("delivery order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("delivery order = %v, want %v", order, want)
		}
	}
}

func TestRegistry_UnsubscribeAndIdle(t *testing.T) {
	r := NewRegistry[string](nil)

	idle := 0
	r.OnIdle("wallet", func() { idle++ })

	var got []string
	unsubA := r.Subscribe("wallet", func(v string) error { got = append(got, "a:"+v); return nil })
	unsubB := r.Subscribe("wallet", func(v string) error { got = append(got, "b:"+v); return nil })

	if r.Count("wallet") != 2 {
		t.Fatalf("Count = %d, want 2", r.Count("wallet"))
	}

	unsubA()
	unsubA()
	if idle != 0 {
		t.Fatal("idle hook ran while a subscriber remains")
	}
	_ = r.Broadcast("wallet", "x")
	if len(got) != 1 || got[0] != "b:x" {
		t.Fatalf("after unsubscribe got %v, want [b:x]", got)
	}

	unsubB()
	if idle != 1 {
		t.Fatalf("idle hook ran %d times, want 1", idle)
	}
	if r.Count("wallet") != 0 {
		t.Errorf("Count = %d, want 0", r.Count("wallet"))
	}
	if err := r.Broadcast("wallet", "y"); err != nil {
		t.Errorf("broadcast to empty topic: %v", err)
	}
}
