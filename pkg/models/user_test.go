package models

import (
	"reflect"
	"testing"
	"time"
)

func TestCloneIsolation(t *testing.T) {
	orig := &UserRecord{
		DirectoryID: "dir_1",
		UserID:      "user_1",
		Attributes: map[string]any{
			"segment": []string{"SMB"},
			"team":    "Platform",
		},
		ReceivedAt: time.Now(),
	}

	clone := orig.Clone()
	clone.Attributes["team"] = "changed"
	clone.Attributes["segment"].([]string)[0] = "Enterprise"

	if orig.Attributes["team"] != "Platform" {
		t.Errorf("Clone mutation leaked into original: %v", orig.Attributes["team"])
	}
	if orig.Attributes["segment"].([]string)[0] != "SMB" {
		t.Errorf("Clone slice mutation leaked into original: %v", orig.Attributes["segment"])
	}
}

func TestCloneNil(t *testing.T) {
	var rec *UserRecord
	if rec.Clone() != nil {
		t.Error("Expected nil clone of nil record")
	}
}

func TestNormalizeAttributes(t *testing.T) {
	attrs := map[string]any{
		"segment": []any{"SMB", "Enterprise"},
		"team":    "Platform",
		"mixed":   []any{"a", 1.0},
	}

	NormalizeAttributes(attrs)

	if !reflect.DeepEqual(attrs["segment"], []string{"SMB", "Enterprise"}) {
		t.Errorf("Expected string slice, got %#v", attrs["segment"])
	}
	if attrs["team"] != "Platform" {
		t.Errorf("Plain string should be untouched, got %#v", attrs["team"])
	}
	// Non-string elements are dropped during conversion.
	if !reflect.DeepEqual(attrs["mixed"], []string{"a"}) {
		t.Errorf("Expected non-string elements dropped, got %#v", attrs["mixed"])
	}
}
