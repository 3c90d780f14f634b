// ABOUTME: Frame logging and status helpers for the server command
// ABOUTME: Batches frames from the decode loop into the SQLite log on a background goroutine
package main

import (
	"log"
	"sync"
	"time"

	"github.com/Sendspin/ltc-go/internal/chase"
	"github.com/Sendspin/ltc-go/internal/store"
	"github.com/Sendspin/ltc-go/pkg/protocol"
)

// frameLogger stores frames without blocking the decode loop
type frameLogger struct {
	repo   *store.FrameRepository
	source string
	retain time.Duration // 0 keeps every frame
	frames chan protocol.TimecodeFrame
	wg     sync.WaitGroup
}

func newFrameLogger(repo *store.FrameRepository, source string, retain time.Duration) *frameLogger {
	l := &frameLogger{
		repo:   repo,
		source: source,
		retain: retain,
		frames: make(chan protocol.TimecodeFrame, 1000),
	}
	l.wg.Add(1)
	go l.run()
	return l
}

// Add queues a frame, dropping it when the writer falls behind
func (l *frameLogger) Add(f protocol.TimecodeFrame) {
	select {
	case l.frames <- f:
	default:
	}
}

func (l *frameLogger) run() {
	defer l.wg.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	l.prune()
	pruneTicker := time.NewTicker(time.Minute)
	defer pruneTicker.Stop()

	var batch []protocol.TimecodeFrame
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := l.repo.RecordBatch(l.source, batch); err != nil {
			log.Printf("Frame log error: %v", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case f, ok := <-l.frames:
			if !ok {
				flush()
				return
			}
			batch = append(batch, f)
			if len(batch) >= 250 {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-pruneTicker.C:
			l.prune()
		}
	}
}

// prune drops frames older than the retention window
func (l *frameLogger) prune() {
	if l.retain <= 0 {
		return
	}
	removed, err := l.repo.Prune(time.Now().Add(-l.retain))
	if err != nil {
		log.Printf("Frame log prune error: %v", err)
		return
	}
	if removed == 0 {
		return
	}
	remaining, err := l.repo.Count("")
	if err != nil {
		log.Printf("Frame log count error: %v", err)
		return
	}
	log.Printf("Pruned %d logged frames older than %v, %d remain", removed, l.retain, remaining)
}

// Close flushes queued frames
func (l *frameLogger) Close() {
	close(l.frames)
	l.wg.Wait()
}

func qualityOf(state protocol.SignalState) chase.Quality {
	switch {
	case state.Locked:
		return chase.QualityGood
	case state.Frames > 0:
		return chase.QualityDegraded
	default:
		return chase.QualityLost
	}
}
