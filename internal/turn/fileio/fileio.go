// Package fileio provides file-backed implementations of the turn
// controller's capture and player interfaces, used by command-line tools
// where the "microphone" is an audio file on disk and "playback" writes
// the reply next to it.
package fileio

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"github.com/deleyapp/lawcopilot/internal/turn"
)

// Capture treats an existing audio file as one recording.
type Capture struct {
	path string
}

var _ turn.Capture = (*Capture)(nil)

// NewCapture creates a capture over the audio file at path.
func NewCapture(path string) *Capture {
	return &Capture{path: path}
}

// Start verifies the recording exists and is readable.
func (c *Capture) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(c.path)
	if err != nil {
		return fmt.Errorf("fileio: open recording: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("fileio: %s is a directory", c.path)
	}
	return nil
}

// Stop closes the recording and hands back the clip.
func (c *Capture) Stop(ctx context.Context) (turn.Clip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Clip{path: c.path}, nil
}

// Clip is a finished file-backed recording.
type Clip struct {
	path      string
	discarded bool
}

var _ turn.Clip = (*Clip)(nil)

// EncodeBase64 reads the recording and returns its transport encoding.
func (c *Clip) EncodeBase64() (string, error) {
	if c.discarded {
		return "", errors.New("fileio: clip was discarded")
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return "", fmt.Errorf("fileio: read recording: %w", err)
	}
	if len(data) == 0 {
		return "", errors.New("fileio: recording is empty")
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Discard marks the clip unusable. The source file is left in place.
func (c *Clip) Discard() {
	c.discarded = true
}

// Player "plays" synthesized audio by decoding it to a file.
type Player struct {
	path string
}

var _ turn.Player = (*Player)(nil)

// NewPlayer creates a player that writes reply audio to path.
func NewPlayer(path string) *Player {
	return &Player{path: path}
}

// Play decodes the clip and writes it out, completing immediately.
func (p *Player) Play(ctx context.Context, audioBase64 string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := base64.StdEncoding.DecodeString(audioBase64)
	if err != nil {
		return fmt.Errorf("fileio: decode reply audio: %w", err)
	}
	if err := os.WriteFile(p.path, data, 0o644); err != nil {
		return fmt.Errorf("fileio: write reply audio: %w", err)
	}
	return nil
}

// Stop is a no-op: file playback has no ongoing sound to release.
func (p *Player) Stop() {}
