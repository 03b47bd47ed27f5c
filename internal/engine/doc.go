// SPDX-License-Identifier: MIT
/*
Package engine implements the producer/consumer core shared by every backend:

  - A single producer (an audio callback or an offline pump) fills ring
    entries, runs the realtime stage chain in place and publishes them.
  - The scheduler turns every published entry into an Interval command and
    fans it, together with directly posted commands, out to one bounded
    queue per consumer stage. Every stage observes the same global order.
  - Entries are reference counted. A slot is only reused after every stage
    has finished its Interval, so consumers never copy sample data.

Thread Safety:
  - The producer never blocks on a consumer. A full ring is the only
    backpressure signal: live backends treat it as fatal, offline backends
    wait for a slot to be released.
  - The only state shared between the producer and consumers is the ring
    cursors and the per-entry reference counts, both atomic.
  - Stop travels through the same ordered path as data, so stages drain
    everything queued ahead of it before the run completes.
*/
package engine
