package alarm

import (
	"context"
	"errors"
	"fmt"
)

// SoundSource names an alarm sound.
type SoundSource string

const (
	SoundCustom             SoundSource = "custom:alarm_sound"
	SoundSystemAlarm        SoundSource = "system:alarm"
	SoundSystemNotification SoundSource = "system:notification"
	SoundSystemRingtone     SoundSource = "system:ringtone"
)

// DefaultSoundFallbacks is tried in order when the custom sound fails.
var DefaultSoundFallbacks = []SoundSource{
	SoundSystemAlarm,
	SoundSystemNotification,
	SoundSystemRingtone,
}

// Player starts looping playback of a sound source.
type Player interface {
	Play(ctx context.Context, source SoundSource) error
}

// SoundChain returns the playback order: custom first, then fallbacks, or
// DefaultSoundFallbacks when none are given. Empty sources are skipped.
func SoundChain(custom SoundSource, fallbacks ...SoundSource) []SoundSource {
	if len(fallbacks) == 0 {
		fallbacks = DefaultSoundFallbacks
	}

	chain := make([]SoundSource, 0, len(fallbacks)+1)
	for _, source := range append([]SoundSource{custom}, fallbacks...) {
		if source != "" {
			chain = append(chain, source)
		}
	}
	return chain
}

// PlayAlarmSound walks SoundChain(custom, fallbacks...) until one source
// starts. It returns that source, or every failure joined.
func PlayAlarmSound(ctx context.Context, player Player, custom SoundSource, fallbacks ...SoundSource) (SoundSource, error) {
	var errs []error
	for _, source := range SoundChain(custom, fallbacks...) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		err := player.Play(ctx, source)
		if err == nil {
			return source, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", source, err))
	}

	return "", fmt.Errorf("failed to start any alarm sound: %w", errors.Join(errs...))
}
