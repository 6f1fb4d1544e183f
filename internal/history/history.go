// Package history keeps the capped per-test-type log of finished tests.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/verte-zerg/cpstest/internal/model"
	"github.com/verte-zerg/cpstest/internal/store"
)

// MaxRecords is the number of records kept per test type.
const MaxRecords = 10

// DateLayout formats the human readable record date.
const DateLayout = "2006/1/2 15:04:05"

const keySuffix = "History"

// Key returns the storage key for a test type.
func Key(testType string) string {
	return testType + keySuffix
}

// Ledger is the history of one test type, newest first.
type Ledger struct {
	testType string
	kv       store.KV
	log      *slog.Logger
	now      func() time.Time
	records  []model.HistoryRecord
}

func newLedger(testType string, kv store.KV, log *slog.Logger, now func() time.Time) *Ledger {
	return &Ledger{testType: testType, kv: kv, log: log, now: now}
}

// TestType returns the namespace of the ledger.
func (l *Ledger) TestType() string {
	return l.testType
}

// Load replaces the in-memory records with the stored ones. Read or decode
// failures leave the ledger empty.
func (l *Ledger) Load() {
	l.records = nil
	raw, err := l.kv.Get(context.Background(), Key(l.testType))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			l.log.Warn("Failed to read history", "testType", l.testType, "error", err)
		}
		return
	}
	var loaded []model.HistoryRecord
	if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
		l.log.Warn("Discarding unreadable history", "testType", l.testType, "error", err)
		return
	}
	if len(loaded) > MaxRecords {
		loaded = loaded[:MaxRecords]
	}
	l.records = loaded
}

// Add records a finished test and returns the new record.
func (l *Ledger) Add(duration, clicks int, cps float64) model.HistoryRecord {
	return l.add(model.HistoryRecord{TestTime: duration, Clicks: clicks, CPS: cps})
}

// AddResult records a finished test including its multi-click count.
func (l *Ledger) AddResult(res model.Result) model.HistoryRecord {
	return l.add(model.HistoryRecord{TestTime: res.Duration, Clicks: res.Clicks, CPS: res.FinalCPS, Multi: res.Multi})
}

func (l *Ledger) add(rec model.HistoryRecord) model.HistoryRecord {
	now := l.now()
	rec.ID = now.UnixMilli()
	if len(l.records) > 0 && rec.ID <= l.records[0].ID {
		rec.ID = l.records[0].ID + 1
	}
	rec.Date = now.Format(DateLayout)

	records := make([]model.HistoryRecord, 0, MaxRecords)
	records = append(records, rec)
	records = append(records, l.records...)
	if len(records) > MaxRecords {
		records = records[:MaxRecords]
	}
	l.records = records
	l.save()
	return rec
}

// FilterByDuration returns the records of the given duration, newest first.
func (l *Ledger) FilterByDuration(duration int) []model.HistoryRecord {
	out := []model.HistoryRecord{}
	for _, r := range l.records {
		if r.TestTime == duration {
			out = append(out, r)
		}
	}
	return out
}

// Records returns a copy of all records, newest first.
func (l *Ledger) Records() []model.HistoryRecord {
	return append([]model.HistoryRecord(nil), l.records...)
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	return len(l.records)
}

// Clear removes every record.
func (l *Ledger) Clear() {
	l.records = nil
	l.save()
}

func (l *Ledger) save() {
	records := l.records
	if records == nil {
		records = []model.HistoryRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		l.log.Warn("Failed to encode history", "testType", l.testType, "error", err)
		return
	}
	if err := l.kv.Set(context.Background(), Key(l.testType), string(data)); err != nil {
		l.log.Warn("Failed to save history", "testType", l.testType, "error", err)
	}
}
