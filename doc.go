/*
Package tubelife is the sequence execution engine of a dual-cylinder tube
lifetime test rig.

An Engine interprets an ordered list of motion and delay steps, drives two
actuator models (A and B) toward their targets, counts completed test cycles
and enforces a run-state machine (IDLE, RUNNING, PAUSED) that keeps the
sequence read-only while a test is in progress.

# Concept

The engine has no clock and no UI. Outer layers send commands (Start, Pause,
Stop, Reset, sequence edits) and read Snapshots; a scheduler calls Tick at a
fixed period. Every tick applies, in order: step interpreter, actuator A,
actuator B, history A, history B. A tick that arrives after Pause, Stop or
Reset is discarded, so no stale effect can land.

The simulated actuator law stands in for a real motor controller. It sits
behind the Law interface so hardware feedback can replace it without
changing the engine contract.

# Usage

	package main

	import (
		"context"
		"log"
		"os/signal"
		"syscall"

		"github.com/aretw0/tubelife"
	)

	func main() {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		eng, err := tubelife.New(tubelife.WithStopAtTotal(true), tubelife.WithTotalCycles(50))
		if err != nil {
			log.Fatal(err)
		}

		r := eng.Runner()
		go func() { _ = r.Run(ctx) }()

		eng.Start(ctx)
		<-ctx.Done()
		log.Printf("completed %d cycles", eng.Snapshot().Cycles.Current)
	}
*/
package tubelife
