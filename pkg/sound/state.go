package sound

// PlaybackState represents the current state of playback. Errors are
// delivered through the "error" event rather than as a state.
type PlaybackState int

const (
	// PlaybackStateIdle indicates the player has been created but no media is loaded.
	PlaybackStateIdle PlaybackState = iota

	// PlaybackStateBuffering indicates the player is buffering media data.
	PlaybackStateBuffering

	// PlaybackStatePlaying indicates the player is actively playing media.
	PlaybackStatePlaying

	// PlaybackStateCompleted indicates playback has reached the end of the media.
	PlaybackStateCompleted

	// PlaybackStatePaused indicates the player is paused and can be resumed.
	PlaybackStatePaused

	// PlaybackStateReady indicates media is loaded and playback can start.
	PlaybackStateReady
)

// String returns a human-readable label for the playback state.
func (s PlaybackState) String() string {
	switch s {
	case PlaybackStateIdle:
		return "Idle"
	case PlaybackStateBuffering:
		return "Buffering"
	case PlaybackStatePlaying:
		return "Playing"
	case PlaybackStateCompleted:
		return "Completed"
	case PlaybackStatePaused:
		return "Paused"
	case PlaybackStateReady:
		return "Ready"
	default:
		return "Unknown"
	}
}

// Canonical media error codes. Native players map their own failures to
// these so listeners see the same values on every platform.
const (
	// ErrCodeSourceError indicates the media source could not be loaded.
	ErrCodeSourceError = "source_error"

	// ErrCodeDecoderError indicates the media could not be decoded.
	ErrCodeDecoderError = "decoder_error"

	// ErrCodePlaybackFailed indicates any other playback failure.
	ErrCodePlaybackFailed = "playback_failed"
)
