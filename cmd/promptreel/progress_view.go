package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"

	"promptreel/internal/generation"
	"promptreel/internal/tracker"
)

// progressView renders tracker events until the event channel closes.
type progressView interface {
	consume(events <-chan tracker.Event)
}

func newProgressView(out io.Writer) progressView {
	if isTerminal(out) {
		return newBarView(out)
	}
	return &lineView{out: out, colorize: shouldColorize(out)}
}

// lineView prints one line per state transition and skips progress ticks.
type lineView struct {
	out      io.Writer
	colorize bool
}

func (v *lineView) consume(events <-chan tracker.Event) {
	for ev := range events {
		g := ev.Generation
		label := shortID(g.ID)
		switch ev.Type {
		case tracker.EventStarted:
			fmt.Fprintln(v.out, renderStatusLine(label, statusInfo, "started: "+truncate(g.Prompt, 60), v.colorize))
		case tracker.EventSubmitted:
			fmt.Fprintln(v.out, renderStatusLine(label, statusInfo, "processing upstream (task "+g.TaskID+")", v.colorize))
		case tracker.EventCompleted:
			fmt.Fprintln(v.out, renderStatusLine(label, statusOK, "completed: "+g.VideoURL, v.colorize))
		case tracker.EventFailed:
			fmt.Fprintln(v.out, renderStatusLine(label, statusError, "failed: "+g.Error, v.colorize))
		}
	}
}

// barView drives one go-pretty progress tracker per generation.
type barView struct {
	out    io.Writer
	writer progress.Writer

	mu       sync.Mutex
	trackers map[string]*progress.Tracker
}

func newBarView(out io.Writer) *barView {
	pw := progress.NewWriter()
	pw.SetOutputWriter(out)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(30)
	pw.SetUpdateFrequency(100 * time.Millisecond)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Visibility.ETA = false
	pw.Style().Visibility.Value = false
	return &barView{out: out, writer: pw, trackers: make(map[string]*progress.Tracker)}
}

func (v *barView) consume(events <-chan tracker.Event) {
	go v.writer.Render()
	for ev := range events {
		v.apply(ev)
	}
	v.writer.Stop()
	for v.writer.IsRenderInProgress() {
		time.Sleep(10 * time.Millisecond)
	}
}

func (v *barView) apply(ev tracker.Event) {
	v.mu.Lock()
	defer v.mu.Unlock()
	g := ev.Generation
	t, ok := v.trackers[g.ID]
	if !ok {
		t = &progress.Tracker{Message: barMessage(g), Total: 100}
		v.trackers[g.ID] = t
		v.writer.AppendTracker(t)
	}
	switch ev.Type {
	case tracker.EventProgress, tracker.EventSubmitted:
		t.SetValue(int64(g.Progress))
	case tracker.EventCompleted:
		t.SetValue(100)
		t.MarkAsDone()
	case tracker.EventFailed:
		t.UpdateMessage(barMessage(g) + " (" + truncate(g.Error, 40) + ")")
		t.MarkAsErrored()
	}
}

func barMessage(g generation.Generation) string {
	return shortID(g.ID) + " " + truncate(g.Prompt, 32)
}
