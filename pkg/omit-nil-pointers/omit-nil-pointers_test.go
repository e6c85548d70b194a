package omitnilpointers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOmitNilPointers(t *testing.T) {
	url := "video.example/1"
	var missing *string

	got := OmitNilPointers(map[string]any{
		"current_media_ref": &url,
		"call_id":           missing,
		"is_playing":        true,
		"nothing":           nil,
	})

	assert.Equal(t, map[string]any{
		"current_media_ref": "video.example/1",
		"is_playing":        true,
	}, got)
}

func TestPairs(t *testing.T) {
	playing := false
	var missing *float64

	got := Pairs(map[string]any{
		"is_playing":         &playing,
		"playback_timestamp": missing,
		"call_id":            "c1",
	})

	assert.Equal(t, []any{"call_id", "c1", "is_playing", false}, got)
}
