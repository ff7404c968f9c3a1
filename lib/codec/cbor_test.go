// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]string{
		"water":      "public-works",
		"sanitation": "public-works",
		"fire":       "emergency-dispatch",
	}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("same value produced different encodings")
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	type wide struct {
		Name  string `cbor:"name"`
		Extra string `cbor:"extra"`
	}
	type narrow struct {
		Name string `cbor:"name"`
	}

	data, err := Marshal(wide{Name: "water", Extra: "ignored"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got narrow
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Name != "water" {
		t.Errorf("Name = %q, want %q", got.Name, "water")
	}
}
