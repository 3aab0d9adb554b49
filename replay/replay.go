// Copyright (c) 2026 by Koanworks.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

// Package replay records a session's inbound snapshot payloads to a
// compressed log and plays them back with their original timing, for
// debugging interpolation behavior against real traffic.
package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Record is one logged payload with its offset from session start.
type Record struct {
	At   time.Duration
	Data json.RawMessage
}

type wireRecord struct {
	AtMS int64           `json:"at_ms"`
	Data json.RawMessage `json:"data"`
}

// Writer appends records to a gzip-compressed, newline-delimited JSON log.
// It is owned by a single goroutine.
type Writer struct {
	gz    *gzip.Writer
	enc   *json.Encoder
	start time.Time
}

func NewWriter(w io.Writer) *Writer {
	gz := gzip.NewWriter(w)
	return &Writer{
		gz:    gz,
		enc:   json.NewEncoder(gz),
		start: time.Now(),
	}
}

// Append logs payload at the current offset from the writer's creation.
func (w *Writer) Append(payload []byte) error {
	return w.Write(time.Since(w.start), payload)
}

// Write logs payload at an explicit offset. The payload must be valid JSON;
// the log itself stays line-parseable that way.
func (w *Writer) Write(at time.Duration, payload []byte) error {
	if !json.Valid(payload) {
		return errors.New("replay: payload is not valid JSON")
	}
	if at < 0 {
		at = 0
	}

	err := w.enc.Encode(wireRecord{
		AtMS: at.Milliseconds(),
		Data: json.RawMessage(payload),
	})
	if err != nil {
		return fmt.Errorf("replay: failed to write record: %w", err)
	}

	return nil
}

// Close flushes the compressed stream. The underlying writer is not closed.
func (w *Writer) Close() error {
	if err := w.gz.Close(); err != nil {
		return fmt.Errorf("replay: failed to close log: %w", err)
	}
	return nil
}

// Reader iterates a log produced by Writer.
type Reader struct {
	gz  *gzip.Reader
	dec *json.Decoder
}

func NewReader(r io.Reader) (*Reader, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("replay: failed to open log: %w", err)
	}

	return &Reader{
		gz:  gz,
		dec: json.NewDecoder(gz),
	}, nil
}

// Next returns the next record, or io.EOF after the last one.
func (r *Reader) Next() (Record, error) {
	var wire wireRecord
	if err := r.dec.Decode(&wire); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("replay: failed to read record: %w", err)
	}

	return Record{
		At:   time.Duration(wire.AtMS) * time.Millisecond,
		Data: wire.Data,
	}, nil
}

func (r *Reader) Close() error {
	if err := r.gz.Close(); err != nil {
		return fmt.Errorf("replay: failed to close log: %w", err)
	}
	return nil
}

// Play delivers every record to fn, sleeping between records to reproduce
// the original pacing. Cancel the context to abort early.
func Play(ctx context.Context, r *Reader, fn func(payload []byte)) error {
	var elapsed time.Duration

	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if wait := rec.At - elapsed; wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		elapsed = rec.At

		fn(rec.Data)
	}
}
