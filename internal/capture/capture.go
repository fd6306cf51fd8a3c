// Package capture abstracts the input-device backend as a lazy, unbounded
// sequence of already-classified events. The real device layer (libinput,
// evdev) sits behind the Source interface so the pipeline can be fed from
// canned sequences in tests or from a record stream in production.
package capture

import (
	"bufio"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/benjaminjonard/sagittarius/internal/classify"
)

// Event is one classified input event: a stable identifier and the count it
// contributes (1 for keys and clicks, the notch count for scrolls).
type Event struct {
	Name  string
	Count uint64
}

// Source yields classified events. The channel is unbounded in duration and
// closes only when the backend ends; a real device source never closes it.
type Source interface {
	Events() <-chan Event
}

// ReplaySource replays a finite canned sequence of events, then closes.
type ReplaySource struct {
	events []Event
}

// NewReplaySource creates a source that yields the given events in order.
func NewReplaySource(events ...Event) *ReplaySource {
	return &ReplaySource{events: events}
}

// Events returns a channel fed with the canned events.
func (s *ReplaySource) Events() <-chan Event {
	ch := make(chan Event, len(s.events))
	for _, ev := range s.events {
		ch <- ev
	}
	close(ch)
	return ch
}

// LineSource adapts a stream of whitespace-separated device records into
// classified events. Record forms:
//
//	key <keycode>
//	button <buttoncode>
//	wheel vertical|horizontal <delta>
//
// Malformed records are skipped, never fatal. The channel closes when the
// underlying reader ends.
type LineSource struct {
	r io.Reader
}

// NewLineSource creates a source reading records from r.
func NewLineSource(r io.Reader) *LineSource {
	return &LineSource{r: r}
}

// Events starts a reader goroutine and returns its channel.
func (s *LineSource) Events() <-chan Event {
	ch := make(chan Event, 64)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(s.r)
		for scanner.Scan() {
			if ev, ok := parseRecord(scanner.Text()); ok {
				ch <- ev
			}
		}
		if err := scanner.Err(); err != nil {
			log.Printf("Event source read error: %v", err)
		}
	}()
	return ch
}

// parseRecord classifies one device record line.
func parseRecord(line string) (Event, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Event{}, false
	}

	switch fields[0] {
	case "key":
		code, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return Event{}, false
		}
		return Event{Name: classify.KeyName(uint32(code)), Count: 1}, true

	case "button":
		code, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return Event{}, false
		}
		return Event{Name: classify.ButtonName(uint32(code)), Count: 1}, true

	case "wheel":
		if len(fields) < 3 {
			return Event{}, false
		}
		delta, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return Event{}, false
		}
		var name string
		switch fields[1] {
		case "vertical":
			name = classify.WheelVertical
		case "horizontal":
			name = classify.WheelHorizontal
		default:
			return Event{}, false
		}
		notches := classify.WheelNotches(delta)
		if notches == 0 {
			return Event{}, false
		}
		return Event{Name: name, Count: notches}, true

	default:
		return Event{}, false
	}
}
