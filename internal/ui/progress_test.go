package ui

import (
	"strings"
	"testing"

	"tsderive/internal/driver"
)

func TestApplyEventCountsTerminalOnce(t *testing.T) {
	files := []string{"a.ts", "b.ts", "c.ts"}
	m := NewProgressModel("expanding", files, nil).(*progressModel)

	m.applyEvent(driver.Event{File: "a.ts", Status: driver.StatusWorking})
	m.applyEvent(driver.Event{File: "a.ts", Status: driver.StatusDone})
	m.applyEvent(driver.Event{File: "a.ts", Status: driver.StatusFailed})
	m.applyEvent(driver.Event{File: "b.ts", Status: driver.StatusCached})
	m.applyEvent(driver.Event{File: "c.ts", Status: driver.StatusFailed, Errors: 2})
	m.applyEvent(driver.Event{File: "unknown.ts", Status: driver.StatusDone})

	if m.finished != 3 || m.failed != 1 || m.cached != 1 {
		t.Fatalf("finished=%d failed=%d cached=%d", m.finished, m.failed, m.cached)
	}
	if m.items[0].status != driver.StatusDone {
		t.Fatalf("terminal status overwritten: %s", m.items[0].status)
	}

	view := m.View()
	if !strings.Contains(view, "[3/3]") || !strings.Contains(view, "2 errors") {
		t.Fatalf("unexpected view:\n%s", view)
	}
}

func TestVisibleItemsPrefersActiveFiles(t *testing.T) {
	files := make([]string, maxRows+5)
	for i := range files {
		files[i] = strings.Repeat("f", i+1) + ".ts"
	}
	m := NewProgressModel("expanding", files, nil).(*progressModel)
	last := files[len(files)-1]
	m.applyEvent(driver.Event{File: last, Status: driver.StatusWorking})

	vis := m.visibleItems()
	if len(vis) != maxRows || vis[0].path != last {
		t.Fatalf("active file not first: %d items, first %q", len(vis), vis[0].path)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("src/very/long/path.ts", 10); got != "src/ver..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("日本語.ts", 5); got != "日..." {
		t.Fatalf("wide truncate = %q", got)
	}
}
