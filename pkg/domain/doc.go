/*
Package domain contains the core models of the tubelife sequence engine.

It defines the test sequence (an ordered list of Move and Delay steps), the
run-state machine and its transition table, the observable actuator and
cycle state, the operator event log entries and the lifecycle events. The
package is free of I/O and persistence concerns.

# Key Entities

  - Step: a sealed sum type, either Move (axis A or B) or Delay.
  - Sequence: the ordered, uniquely identified steps of one test cycle.
  - RunState: IDLE, RUNNING or PAUSED, with the Next transition table.
  - Snapshot: a copy of the engine state handed to display layers.
*/
package domain
