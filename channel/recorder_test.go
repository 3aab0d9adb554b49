// Copyright (c) 2026 by Koanworks.

package channel

import (
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestRecorderSequence(t *testing.T) {
	rec := NewRecorder[int]()

	for i := 1; i <= 5; i++ {
		rec.C() <- i
	}

	got := rec.Stop()
	if expected := []int{1, 2, 3, 4, 5}; !reflect.DeepEqual(got, expected) {
		t.Errorf("recorded %v, expected %v", got, expected)
	}
}

func TestRecorderConcurrentProducers(t *testing.T) {
	rec := NewRecorder[int]()

	wg := sync.WaitGroup{}
	for n := 0; n < 4; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				rec.C() <- i
			}
		}()
	}
	wg.Wait()

	if got := rec.Stop(); len(got) != 100 {
		t.Errorf("recorded %d values, expected 100", len(got))
	}
}

func TestRecorderSnapshotDoesNotStop(t *testing.T) {
	rec := NewRecorder[string]()

	rec.C() <- "a"

	for len(rec.Snapshot()) == 0 {
		time.Sleep(time.Millisecond)
	}

	rec.C() <- "b"

	if got := rec.Stop(); len(got) != 2 {
		t.Errorf("recorded %v, expected both values", got)
	}
}
