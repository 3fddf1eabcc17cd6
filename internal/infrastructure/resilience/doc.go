/*
Package resilience provides a circuit breaker for calls into flaky dependencies.

The capture loop guards every screenshot with a Breaker: a render surface that
keeps failing is left alone for a cooldown period instead of being hammered on
every backoff tick.

# Usage

	breaker := resilience.New("capture", resilience.Settings{
		Timeout:     5 * time.Second,
		ReadyToTrip: resilience.ConsecutiveFailures(10),
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("breaker state changed", zap.Stringer("from", from), zap.Stringer("to", to))
		},
	})

	done, err := breaker.Allow()
	if err != nil {
		return err // open, skip the call
	}
	frame, err := source.Capture(ctx)
	done(err == nil)

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                       [failure]
	                                           v
	                                          Open
*/
package resilience
