/*
Package resilience provides failure-handling primitives for unreliable
upstreams: a circuit breaker for page and resource fetches, and bounded
backoff schedules for retryable preview operations.

# Circuit Breaker

The breaker has three states. Closed passes requests through and counts
failures. Open rejects requests immediately with ErrCircuitOpen. After
Timeout the breaker goes half-open and admits a limited number of probes;
enough successes close it again, one failure reopens it.

	breaker := resilience.New("proxy-upstream", resilience.Settings{
		MaxRequests: 3,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	result, err := breaker.Execute(func() (interface{}, error) {
		return client.Fetch(url)
	})

# Backoff

Backoff is an explicit, finite retry schedule. Callers ask for the delay
of each attempt and stop when the schedule is exhausted:

	schedule := resilience.NewBackoff(100*time.Millisecond, 500*time.Millisecond)
	for attempt := 0; ; attempt++ {
		if try() == nil {
			break
		}
		delay, ok := schedule.Delay(attempt)
		if !ok {
			break
		}
		time.Sleep(delay)
	}

Finite schedules keep repair loops from retrying forever against content
that will never converge.
*/
package resilience
