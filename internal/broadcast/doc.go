/*
Package broadcast runs the capture-and-broadcast loop.

A Loop has two modes. In Idle-Wait it sleeps IdleInterval and rechecks the
registry; no frame is captured. In Active-Streaming it captures one frame,
hands it to every viewer in a registry snapshot and sleeps
max(1s/fps, FrameFloor). A failed capture backs off ErrorBackoff and retries;
after BreakerThreshold consecutive failures the breaker stops capture
attempts for BreakerCooldown.

	Stopped --Start--> Running --Shutdown--> Closed
	                      |
	             idle <---+---> streaming
	        (no viewers)        (viewers)

Start is idempotent and is called on every viewer connect. The loop never
stops because the last viewer left; only Shutdown ends it.
*/
package broadcast
