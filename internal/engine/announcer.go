package engine

import "log/slog"

// UpcomingKind distinguishes the two "3 seconds left" voice cues.
type UpcomingKind string

const (
	WorkEnding UpcomingKind = "work_ending"
	RestEnding UpcomingKind = "rest_ending"
)

// Announcer is the audio boundary the engine speaks through. The engine
// serializes its own state; implementations must not call back into the
// engine except through the onGo callback handed to AnnounceCountdown.
//
// AnnounceCountdown speaks a "3, 2, 1, Go!" sequence and invokes onGo
// the moment the terminal word starts. The interval clock begins on that
// signal, so the spoken "Go!" and the first tick line up. A disabled or
// failed announcer must still invoke onGo (immediately), otherwise the
// timer would stall waiting on audio.
type Announcer interface {
	AnnounceCountdown(label string, onGo func())
	AnnounceUpcoming(kind UpcomingKind)
	PlayBell()
	AnnounceComplete()
	// Stop cancels any in-flight speech immediately. Idempotent.
	Stop()
}

// NopAnnouncer is the announcements-disabled mode: every cue is a no-op
// and the countdown completes synchronously.
type NopAnnouncer struct{}

func (NopAnnouncer) AnnounceCountdown(label string, onGo func()) {
	if onGo != nil {
		onGo()
	}
}

func (NopAnnouncer) AnnounceUpcoming(UpcomingKind) {}
func (NopAnnouncer) PlayBell()                     {}
func (NopAnnouncer) AnnounceComplete()             {}
func (NopAnnouncer) Stop()                         {}

// LogAnnouncer writes cues to the log. Server deployments have no audio
// device; this keeps cue timing observable in the request logs.
type LogAnnouncer struct {
	Log *slog.Logger
}

func (a *LogAnnouncer) AnnounceCountdown(label string, onGo func()) {
	a.Log.Info("cue: countdown", "label", label)
	if onGo != nil {
		onGo()
	}
}

func (a *LogAnnouncer) AnnounceUpcoming(kind UpcomingKind) {
	a.Log.Info("cue: upcoming transition", "kind", string(kind))
}

func (a *LogAnnouncer) PlayBell()         { a.Log.Info("cue: bell") }
func (a *LogAnnouncer) AnnounceComplete() { a.Log.Info("cue: workout complete") }
func (a *LogAnnouncer) Stop()             {}
