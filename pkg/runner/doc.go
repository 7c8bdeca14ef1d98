/*
Package runner drives an engine in real time.

The engine itself has no clock: it exposes a single Tick entry point. A Runner
arms a ticker only while the engine reports RUNNING, sleeps on the engine's
change notifications otherwise, and never runs two ticks at once.

# Usage

	r := runner.New(engine, runner.WithPeriod(50*time.Millisecond))
	go func() { _ = r.Run(ctx) }()
	engine.Start(ctx)
*/
package runner
