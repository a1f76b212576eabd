// Package events carries folder pipeline notifications from the browse
// service to whoever renders them.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/folio-media/folio/internal/constants"
)

// EventType names a kind of event; subscriptions are per type.
type EventType string

const (
	EventLog EventType = "log"

	// Folder pipeline events
	EventFolderSnapshot    EventType = "folder_snapshot"    // A merged snapshot is ready to render
	EventHydrationProgress EventType = "hydration_progress" // Another page was merged
	EventHydrationDone     EventType = "hydration_done"     // A hydration run ended (any reason)
	EventSessionChanged    EventType = "session_changed"    // Session cache state was replaced
	EventVisibleChanged    EventType = "visible_changed"    // Viewport reported a new visible set
)

// LogLevel is the severity of a LogEvent. Only warnings and errors are
// forwarded to the bus by the logger.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l LogLevel) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// Event is anything published on an EventBus.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent is embedded by every event type.
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

func stamp(t EventType) BaseEvent { return BaseEvent{EventType: t, Time: time.Now()} }

// LogEvent represents log messages
type LogEvent struct {
	BaseEvent
	Level     LogLevel
	Message   string
	Component string
	Error     error
}

// FolderSnapshotEvent carries a snapshot for the renderer.
// Cached is true when the snapshot came from the session cache rather than a fetch.
type FolderSnapshotEvent struct {
	BaseEvent
	Path        string
	RequestID   uint64
	ItemCount   int
	GeneratedAt string
	Complete    bool
	Cached      bool
}

// HydrationProgressEvent is published after each merged page.
type HydrationProgressEvent struct {
	BaseEvent
	Path        string
	RequestID   uint64
	LoadedPages int
	TotalPages  int
	LoadedItems int
	TotalItems  int // 0 when the server did not report a total
}

// HydrationDoneEvent is published when a hydration run stops.
// Reason is one of "completed", "cancelled", "fetch-failed", "context-done".
// A "fetch-failed" run can be retried; the snapshot already shown stays valid.
type HydrationDoneEvent struct {
	BaseEvent
	Path        string
	RequestID   uint64
	Reason      string
	PagesMerged int
	ItemCount   int
	Error       error
}

// SessionChangedEvent reports the number of folder entries held by the session cache.
type SessionChangedEvent struct {
	BaseEvent
	Entries int
	Reason  string // "snapshot", "anchor", "invalidate", "scope"
}

// VisibleChangedEvent reports which item paths are currently on screen.
type VisibleChangedEvent struct {
	BaseEvent
	Path      string
	Visible   []string
	TopAnchor string
}

// EventBus fans events out to per-type subscriber channels. Publish never
// blocks: a subscriber whose buffer is full misses the event and the miss is
// counted.
type EventBus struct {
	mu      sync.RWMutex
	subs    map[EventType][]chan Event
	buffer  int
	closed  bool
	dropped atomic.Int64
}

// NewEventBus creates a bus whose subscriber channels hold bufferSize events.
// Zero selects constants.EventBusDefaultBuffer; larger values are capped at
// constants.EventBusMaxBuffer.
func NewEventBus(bufferSize int) *EventBus {
	switch {
	case bufferSize <= 0:
		bufferSize = constants.EventBusDefaultBuffer
	case bufferSize > constants.EventBusMaxBuffer:
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{subs: make(map[EventType][]chan Event), buffer: bufferSize}
}

// Subscribe returns a channel receiving every event of type t until Close.
// On a closed bus the channel is already closed.
func (eb *EventBus) Subscribe(t EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan Event, eb.buffer)
	if eb.closed {
		close(ch)
		return ch
	}
	eb.subs[t] = append(eb.subs[t], ch)
	return ch
}

// Publish delivers ev to the subscribers of its type.
func (eb *EventBus) Publish(ev Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	if eb.closed {
		return
	}
	for _, ch := range eb.subs[ev.Type()] {
		select {
		case ch <- ev:
		default:
			eb.dropped.Add(1)
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (eb *EventBus) Dropped() int64 {
	return eb.dropped.Load()
}

// Close closes every subscriber channel. Later publishes are ignored.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		return
	}
	eb.closed = true
	for _, chans := range eb.subs {
		for _, ch := range chans {
			close(ch)
		}
	}
}

func (eb *EventBus) PublishLog(level LogLevel, message, component string, err error) {
	eb.Publish(&LogEvent{
		BaseEvent: stamp(EventLog),
		Level:     level,
		Message:   message,
		Component: component,
		Error:     err,
	})
}

func (eb *EventBus) PublishSnapshot(path string, requestID uint64, itemCount int, generatedAt string, complete, cached bool) {
	eb.Publish(&FolderSnapshotEvent{
		BaseEvent:   stamp(EventFolderSnapshot),
		Path:        path,
		RequestID:   requestID,
		ItemCount:   itemCount,
		GeneratedAt: generatedAt,
		Complete:    complete,
		Cached:      cached,
	})
}

func (eb *EventBus) PublishSessionChanged(entries int, reason string) {
	eb.Publish(&SessionChangedEvent{
		BaseEvent: stamp(EventSessionChanged),
		Entries:   entries,
		Reason:    reason,
	})
}

func NewHydrationProgress(path string, requestID uint64, loadedPages, totalPages, loadedItems, totalItems int) *HydrationProgressEvent {
	return &HydrationProgressEvent{
		BaseEvent:   stamp(EventHydrationProgress),
		Path:        path,
		RequestID:   requestID,
		LoadedPages: loadedPages,
		TotalPages:  totalPages,
		LoadedItems: loadedItems,
		TotalItems:  totalItems,
	}
}

func NewHydrationDone(path string, requestID uint64, reason string, pagesMerged, itemCount int, err error) *HydrationDoneEvent {
	return &HydrationDoneEvent{
		BaseEvent:   stamp(EventHydrationDone),
		Path:        path,
		RequestID:   requestID,
		Reason:      reason,
		PagesMerged: pagesMerged,
		ItemCount:   itemCount,
		Error:       err,
	}
}

func NewVisibleChanged(path string, visible []string, topAnchor string) *VisibleChangedEvent {
	return &VisibleChangedEvent{
		BaseEvent: stamp(EventVisibleChanged),
		Path:      path,
		Visible:   visible,
		TopAnchor: topAnchor,
	}
}
