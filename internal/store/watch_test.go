package store

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestWatch_ResyncsOnChange(t *testing.T) {
	tbl := openTestTable(t)
	ix := openTestIndex(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan SyncEvent, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, tbl, ix, 20*time.Millisecond, func(ev SyncEvent) {
			events <- ev
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	content := "ID,Name,Email,Phone\n1,Jane,,\n2,John,,\n"
	if err := os.WriteFile(tbl.Records.Path(), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-events:
		if ev.Err != nil {
			t.Fatalf("resync error: %v", ev.Err)
		}
		if ev.Records != 2 {
			t.Errorf("Records = %d, want 2", ev.Records)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no sync event after data file change")
	}

	if tbl.Records.Len() != 2 {
		t.Errorf("table not reloaded: Len() = %d", tbl.Records.Len())
	}
	rows, err := ix.Query(`SELECT name FROM contacts ORDER BY id`)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1]["name"] != "John" {
		t.Errorf("index rows = %v", rows)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() returned %v after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatch_CancelledContext(t *testing.T) {
	tbl := openTestTable(t)
	ix := openTestIndex(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Watch(ctx, tbl, ix, 0, func(SyncEvent) {}); err != nil {
		t.Errorf("Watch() = %v, want nil", err)
	}
}
