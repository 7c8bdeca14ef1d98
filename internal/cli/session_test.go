package cli

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/tubelife/pkg/domain"
)

func logSnapshot(seqs ...uint64) domain.Snapshot {
	var snap domain.Snapshot
	for _, n := range seqs {
		snap.Log = append(snap.Log, domain.LogEntry{
			Seq:       n,
			Timestamp: time.Unix(int64(n), 0).UTC(),
			Message:   fmt.Sprintf("msg %d", n),
			Category:  domain.LogSystem,
		})
	}
	return snap
}

func printed(out *strings.Builder) []string {
	var msgs []string
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if i := strings.Index(line, "msg "); i >= 0 {
			msgs = append(msgs, line[i:])
		}
	}
	out.Reset()
	return msgs
}

func TestLogView_PrintsOnlyNewEntries(t *testing.T) {
	var out strings.Builder
	v := &logView{out: &out}

	v.Draw(logSnapshot(2, 1), "")
	assert.Equal(t, []string{"msg 1", "msg 2"}, printed(&out))

	v.Draw(logSnapshot(2, 1), "")
	assert.Empty(t, printed(&out))

	v.Draw(logSnapshot(4, 3, 2, 1), "")
	assert.Equal(t, []string{"msg 3", "msg 4"}, printed(&out))
}

func TestLogView_LastSeenScrolledOut(t *testing.T) {
	var out strings.Builder
	v := &logView{out: &out}
	v.Draw(logSnapshot(1), "")
	printed(&out)

	// The window moved past entry 1 and lost 2 and 3 between draws.
	v.Draw(logSnapshot(6, 5, 4), "")
	assert.Equal(t, []string{"msg 4", "msg 5", "msg 6"}, printed(&out))
}

func TestLogView_AfterClear(t *testing.T) {
	var out strings.Builder
	v := &logView{out: &out}
	v.Draw(logSnapshot(3, 2, 1), "")
	printed(&out)

	v.Draw(logSnapshot(), "")
	assert.Empty(t, printed(&out))

	v.Draw(logSnapshot(4), "")
	assert.Equal(t, []string{"msg 4"}, printed(&out))
}
