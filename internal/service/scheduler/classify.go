package scheduler

import (
	"errors"

	"github.com/oshokin/bell-scheduler/internal/repository/sound"
	"github.com/oshokin/bell-scheduler/internal/service/playback"
)

// Degraded reasons reported in logs and metrics.
const (
	reasonNoPlayer     = "no_player"
	reasonSoundMissing = "sound_missing"
	reasonSoundInvalid = "sound_invalid"
	reasonNoSound      = "no_sound"
)

// classification tells how an absorbed error is reported.
type classification struct {
	// degraded errors are expected on a misconfigured host and logged as warnings.
	degraded bool
	// reason labels degraded errors.
	reason string
	// message is the log line for degraded errors.
	message string
}

// classify maps an error raised while firing an alarm to its severity.
// Anything unrecognised is a failure.
func classify(err error) classification {
	switch {
	case errors.Is(err, playback.ErrNoPlayer):
		return classification{
			degraded: true,
			reason:   reasonNoPlayer,
			message:  "No audio player found, install mpg123, aplay, vlc or ffmpeg",
		}
	case errors.Is(err, sound.ErrNotFound), errors.Is(err, playback.ErrSoundNotFound):
		return classification{
			degraded: true,
			reason:   reasonSoundMissing,
			message:  "Sound file not found",
		}
	case errors.Is(err, sound.ErrInvalidName):
		return classification{
			degraded: true,
			reason:   reasonSoundInvalid,
			message:  "Sound name rejected",
		}
	default:
		return classification{}
	}
}
