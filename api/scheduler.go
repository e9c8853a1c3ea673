/*
scheduler.go - Automated recognition scheduler

PURPOSE:
  Periodically reruns recognition for every invoice so persisted monthly
  entries track late-arriving payments, refunds, and extensions without a
  manual POST /api/recognize.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each run recognizes all invoices as of the current date
  - Unrecognizable invoices (unpaid, bad dates) are logged and skipped
  - Reruns are safe: ReplaceMonthlyEntries makes each run idempotent

CONFIGURATION:
  - CheckInterval: How often to run (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewRecognitionScheduler(store, handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RecognizeAll endpoint (manual runs)
  - revrec: the engine each run drives
*/
package api

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/clearledger/revrec-engine/revrec"
	"github.com/clearledger/revrec-engine/store/sqlite"
)

// RecognitionScheduler reruns recognition on an interval.
type RecognitionScheduler struct {
	Store         *sqlite.Store
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRecognitionScheduler creates a new scheduler.
func NewRecognitionScheduler(store *sqlite.Store, handler *Handler) *RecognitionScheduler {
	return &RecognitionScheduler{
		Store:         store,
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (rs *RecognitionScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Scheduler] Started with check interval: %v", rs.CheckInterval)
}

// Stop halts the scheduler and waits for an in-flight run to finish.
func (rs *RecognitionScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker == nil {
		return
	}

	rs.ticker.Stop()
	close(rs.stop)
	rs.wg.Wait()
	log.Println("[Scheduler] Stopped")
}

func (rs *RecognitionScheduler) run() {
	defer rs.wg.Done()

	for {
		select {
		case <-rs.ticker.C:
			rs.RunNow()
		case <-rs.stop:
			return
		}
	}
}

// RunNow recognizes every invoice as of today, immediately.
func (rs *RecognitionScheduler) RunNow() {
	ctx := context.Background()
	asOf := revrec.DateOf(time.Now().UTC())

	invoices, err := rs.Store.ListInvoices(ctx, asOf)
	if err != nil {
		log.Printf("[Scheduler] Failed to list invoices: %v", err)
		return
	}

	recognized, skipped := 0, 0
	for _, inv := range invoices {
		if _, err := rs.Handler.recognizeOne(ctx, inv, asOf); err != nil {
			if errors.Is(err, revrec.ErrUnpaidInvoice) || revrec.IsInputError(err) {
				skipped++
				continue
			}
			log.Printf("[Scheduler] Recognition failed for invoice %s: %v", inv.ID, err)
			return
		}
		recognized++
	}

	log.Printf("[Scheduler] Run complete as of %s: %d recognized, %d skipped",
		asOf, recognized, skipped)
}
