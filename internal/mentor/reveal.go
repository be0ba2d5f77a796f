package mentor

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"
)

// SplitSegments cuts text after '.', '!' or '?' wherever the mark is directly
// followed by whitespace. The whitespace itself is dropped.
func SplitSegments(text string) []string {
	if text == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		end := i
		for i < len(text) {
			next, n := utf8.DecodeRuneInString(text[i:])
			if !unicode.IsSpace(next) {
				break
			}
			i += n
		}
		if i > end {
			out = append(out, text[start:end])
			start = i
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

// Sink receives the cumulative text for a transcript position.
type Sink func(index int, text string)

type revealRun struct {
	generation uint64
	index      int
	final      string
}

// Revealer replays a known reply chunk by chunk. Every Start gets a new
// generation; a loop whose generation is no longer current stops without
// writing.
type Revealer struct {
	interval time.Duration
	sink     Sink

	mu         sync.Mutex
	generation uint64
	active     *revealRun
	wg         sync.WaitGroup
}

func NewRevealer(interval time.Duration, sink Sink) *Revealer {
	return &Revealer{interval: interval, sink: sink}
}

// Start reveals text at index. The first chunk is written immediately and
// each following chunk one interval later; onDone runs one interval after
// the last chunk unless the run was superseded.
func (r *Revealer) Start(ctx context.Context, index int, text string, onDone func(generation uint64)) uint64 {
	segments := SplitSegments(text)

	r.mu.Lock()
	r.generation++
	gen := r.generation
	r.active = &revealRun{generation: gen, index: index, final: accumulate(segments)}
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(ctx, gen, index, segments, onDone)
	return gen
}

func (r *Revealer) run(ctx context.Context, gen uint64, index int, segments []string, onDone func(uint64)) {
	defer r.wg.Done()

	timer := time.NewTimer(r.interval)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	var acc strings.Builder
	for i, seg := range segments {
		if i > 0 && !r.wait(ctx, timer) {
			return
		}
		acc.WriteString(seg)
		acc.WriteByte(' ')
		if !r.emit(gen, index, acc.String()) {
			return
		}
	}
	if len(segments) > 0 && !r.wait(ctx, timer) {
		return
	}

	r.mu.Lock()
	current := r.generation == gen
	if current {
		r.active = nil
	}
	r.mu.Unlock()
	if current && onDone != nil {
		onDone(gen)
	}
}

func (r *Revealer) wait(ctx context.Context, timer *time.Timer) bool {
	timer.Reset(r.interval)
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// emit writes under the lock so a superseded loop can never land a write
// after Start or Settle moved the generation.
func (r *Revealer) emit(gen uint64, index int, text string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation != gen {
		return false
	}
	r.sink(index, text)
	return true
}

// Settle abandons the running reveal and writes its complete text at once.
// It reports the settled position, or false when nothing was running.
func (r *Revealer) Settle() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run := r.active
	if run == nil || run.generation != r.generation {
		return 0, false
	}
	r.generation++
	r.active = nil
	r.sink(run.index, run.final)
	return run.index, true
}

// Cancel abandons the running reveal, leaving its text as last written.
func (r *Revealer) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	r.active = nil
}

// Generation returns the current generation token.
func (r *Revealer) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// Wait blocks until every started loop has exited.
func (r *Revealer) Wait() {
	r.wg.Wait()
}

func accumulate(segments []string) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s)
		b.WriteByte(' ')
	}
	return b.String()
}
