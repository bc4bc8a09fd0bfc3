//go:build !((linux && cgo) || windows || darwin)

package transport

import (
	"context"
	"log/slog"
)

// AudioAvailable indicates whether audio output is supported in this build.
// Device output requires cgo on linux.
const AudioAvailable = false

// SpeakerFactory is a stub for builds without audio output.
type SpeakerFactory struct{}

// NewSpeakerFactory returns a factory whose Open always fails.
func NewSpeakerFactory(_ Resolver, _ *slog.Logger) *SpeakerFactory {
	return &SpeakerFactory{}
}

// Open implements Factory.
func (f *SpeakerFactory) Open(_ context.Context, _ Options, _ Notify) (Transport, error) {
	return nil, ErrAudioUnavailable
}

var _ Factory = (*SpeakerFactory)(nil)
