/*
Package sandbox provides the isolated JavaScript execution context for
previews.

# Overview

Each preview run executes the injected instrumentation plus the user's
script inside a goja runtime. The runtime is isolated:

  - No require/process/module/exports
  - Timers are no-ops
  - Execution is interrupted after a configurable timeout
  - A document proxy parsed from the user's markup serves DOM queries

# Host bridge

The runtime exposes window.parent.postMessage as the only path back to the
host. The instrumentation posts console and error events through it; the
host's console bridge validates the channel identifier before trusting any
payload. Delivery is fire-and-forget: if no emit hook is attached, events
are lost, never buffered.

# Supersession

The host replaces the runtime on every run. A superseded runtime is not
terminated: it keeps executing until its timeout and may keep emitting.
Channel correlation on the host side, not cancellation, is what keeps stale
output away from the console view.
*/
package sandbox
