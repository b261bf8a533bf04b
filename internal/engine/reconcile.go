package engine

import "github.com/meltforce/cadence/internal/models"

// Reconcile fast-forwards the machine by elapsedSeconds of wall-clock
// time spent suspended, producing the same final state as that many
// Tick calls would have, with no intermediate bells or announcements.
//
// The loop consumes a whole phase per iteration, so the cost is bounded
// by the number of phase transitions, not by elapsedSeconds. Excess
// time past the end of the workout is discarded at completed.
//
// A paused machine stays paused: backgrounded wall-clock time does not
// advance a timer the user stopped on purpose. Countdown is untouched
// as well; it is announcement-driven, not tick-driven, and the runner
// restarts it on foreground instead.
func (m *Machine) Reconcile(elapsedSeconds int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elapsedSeconds <= 0 || m.paused || !m.phase.Work() {
		return
	}

	remaining := elapsedSeconds
	for remaining > 0 && m.phase != models.PhaseCompleted {
		step := m.timeRemaining
		if step > remaining {
			step = remaining
		}
		m.timeRemaining -= step
		remaining -= step
		m.elapsed += step
		if m.timeRemaining == 0 {
			m.advance(true)
		}
	}
}
