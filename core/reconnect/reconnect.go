package reconnect

import "time"

// Schedule defines the backoff durations for successive redial attempts
// against the host listener. Early attempts are quick because the usual
// failure is a dropped connection during a modal dialog, not a dead host.
var Schedule = []time.Duration{
	250 * time.Millisecond, 500 * time.Millisecond, time.Second,
	2 * time.Second, 5 * time.Second,
}

// Delay returns the backoff duration for the given attempt.
// Attempts beyond the length of the schedule default to 10 seconds.
func Delay(attempt int) time.Duration {
	if attempt < len(Schedule) {
		return Schedule[attempt]
	}
	return 10 * time.Second
}
