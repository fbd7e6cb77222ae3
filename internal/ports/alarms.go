package ports

import "time"

// AlarmService schedules named recurring alarms. Re-creating an alarm with an
// existing name replaces it. Fired alarm names are delivered on the channel
// returned by Fired; a slow consumer drops ticks rather than queueing them.
type AlarmService interface {
	// Create schedules name to fire after delay and then every period.
	// A zero period fires once.
	Create(name string, delay, period time.Duration)

	// Clear cancels the alarm. Unknown names are ignored.
	Clear(name string)

	// Fired delivers the name of each alarm as it fires.
	Fired() <-chan string
}
