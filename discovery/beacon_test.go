// Copyright (c) 2026 by Koanworks

package discovery

import (
	"errors"
	"testing"
)

func TestBeaconRoundTrip(t *testing.T) {
	in := Beacon{PeerID: "peer-1", Name: "Iron Monk", Room: "temple"}

	data, err := EncodeBeacon(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := DecodeBeacon(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != in {
		t.Errorf("got %+v, want %+v", got, in)
	}
}

func TestDecodeForeignTraffic(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "wrong-magic", data: []byte("MDNS\x00\x00{}")},
		{name: "truncated-magic", data: []byte("PRS")},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := DecodeBeacon(test.data); !errors.Is(err, ErrNotBeacon) {
				t.Errorf("err = %v, want ErrNotBeacon", err)
			}
		})
	}
}

func TestDecodeCorruptBody(t *testing.T) {
	data := append(append([]byte{}, beaconMagic...), []byte(`{"peerId":`)...)
	if _, err := DecodeBeacon(data); err == nil || errors.Is(err, ErrNotBeacon) {
		t.Errorf("err = %v, want a decode failure", err)
	}
}

func TestEncodeRequiresPeerID(t *testing.T) {
	if _, err := EncodeBeacon(Beacon{Name: "nameless"}); err == nil {
		t.Error("beacon without peer id accepted")
	}
}

func TestDecodeRejectsAnonymousBeacon(t *testing.T) {
	data := append(append([]byte{}, beaconMagic...), []byte(`{"name":"ghost"}`)...)
	if _, err := DecodeBeacon(data); err == nil {
		t.Error("beacon without peer id accepted")
	}
}
