package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/tubelife"
	"github.com/aretw0/tubelife/pkg/domain"
)

// ConsoleHelp lists the operator commands accepted on stdin.
const ConsoleHelp = "start | pause | stop | reset | save [name] | load <name> | total <n> | clear | quit"

// Console applies operator commands typed on a line-based input.
type Console struct {
	Engine *tubelife.Engine
	Host   interface{ Select(name string) }
}

// Exec runs one command line. It returns a short status message and whether
// the operator asked to quit.
func (c *Console) Exec(ctx context.Context, line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", false
	}
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch strings.ToLower(fields[0]) {
	case "start", "s":
		return changed(c.Engine.Start(ctx), "start"), false
	case "pause", "p":
		return changed(c.Engine.Pause(ctx), "pause"), false
	case "stop":
		return changed(c.Engine.Stop(ctx), "stop"), false
	case "reset":
		return changed(c.Engine.Reset(ctx), "reset"), false
	case "clear":
		c.Engine.ClearLog()
		return "Log cleared.", false
	case "save":
		if err := c.Engine.Save(ctx, arg); err != nil {
			return describeError(err), false
		}
		return "Save requested.", false
	case "load":
		if arg == "" {
			return "Usage: load <name>", false
		}
		if c.Engine.Locked() {
			return describeError(domain.ErrLocked), false
		}
		if c.Host != nil {
			c.Host.Select(arg)
		}
		if err := c.Engine.RequestLoad(ctx); err != nil {
			return describeError(err), false
		}
		return fmt.Sprintf("Loading %q...", arg), false
	case "total":
		if err := c.Engine.SetTotalCyclesInput(ctx, arg); err != nil {
			return describeError(err), false
		}
		return fmt.Sprintf("Total cycles set to %d.", c.Engine.Snapshot().Cycles.Total), false
	case "quit", "q", "exit":
		return "", true
	case "help", "?":
		return ConsoleHelp, false
	default:
		return fmt.Sprintf("Unknown command %q. Try: %s", fields[0], ConsoleHelp), false
	}
}

func changed(ok bool, cmd string) string {
	if ok {
		return ""
	}
	return fmt.Sprintf("%s ignored in the current state.", cmd)
}

func describeError(err error) string {
	switch {
	case errors.Is(err, domain.ErrLocked):
		return "Sequence is locked while running. Stop first."
	case errors.Is(err, tubelife.ErrNoHost):
		return "No library attached."
	default:
		return err.Error()
	}
}

// readLines forwards lines from r until EOF or ctx ends, then closes out.
func readLines(ctx context.Context, r io.Reader, out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case out <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
}
