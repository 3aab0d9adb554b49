// Copyright (c) 2026 by Koanworks.

package replay

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"testing"
	"time"
)

func TestRoundTrip(t *testing.T) {
	payloads := []string{
		`{"position":{"x":1,"y":2,"z":3}}`,
		`{"rotation":0.5}`,
		`{"animation":"walking"}`,
	}
	offsets := []time.Duration{0, 20 * time.Millisecond, 40 * time.Millisecond}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	for i, p := range payloads {
		if err := w.Write(offsets[i], []byte(p)); err != nil {
			t.Fatalf("write record %d: %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	r, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer r.Close()

	for i := range payloads {
		rec, err := r.Next()
		if err != nil {
			t.Fatalf("read record %d: %v", i, err)
		}
		if rec.At != offsets[i] {
			t.Errorf("record %d: offset=%v, expected %v", i, rec.At, offsets[i])
		}
		if string(rec.Data) != payloads[i] {
			t.Errorf("record %d: data=%s, expected %s", i, rec.Data, payloads[i])
		}
	}

	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after last record, got: %v", err)
	}
}

func TestRejectsInvalidPayload(t *testing.T) {
	w := NewWriter(io.Discard)
	if err := w.Write(0, []byte("not json")); err == nil {
		t.Error("expected an error for a non-JSON payload")
	}
}

func TestReaderRejectsGarbage(t *testing.T) {
	if _, err := NewReader(bytes.NewReader([]byte("definitely not gzip"))); err == nil {
		t.Error("expected an error for a non-gzip stream")
	}
}

func TestPlayDeliversInOrder(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for i, p := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
		if err := w.Write(time.Duration(i)*time.Millisecond, []byte(p)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	r, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer r.Close()

	var got []string
	err = Play(context.Background(), r, func(payload []byte) {
		got = append(got, string(payload))
	})
	if err != nil {
		t.Fatalf("play: %v", err)
	}

	expected := []string{`{"n":1}`, `{"n":2}`, `{"n":3}`}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("played back %v, expected %v", got, expected)
	}
}

func TestPlayHonorsContext(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Write(time.Hour, []byte(`{}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	r, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = Play(ctx, r, func([]byte) {
		t.Error("payload delivered despite cancelled context")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
}
