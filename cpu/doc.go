// Package cpu implements the system control coprocessor (CP15) of the
// ARM926EJ-S core and the processor mode seen by the MMU.
//
// The instruction core itself lives outside this module. It forwards MCR
// and MRC instructions addressed to coprocessor 15, reports mode changes,
// and hands translation faults back through Abort so the fault status and
// address registers follow the architecture. Every CP15 write that can
// change a translation is turned into the matching MMU invalidation event.
package cpu
