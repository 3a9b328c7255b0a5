package service

import "sync"

// logBufferSize is how many entries each device's ring keeps.
const logBufferSize = 200

// LogListener receives every log line as it is appended.
type LogListener func(deviceID, message string)

// LogHub keeps a bounded per-device log ring readable by external
// observers at any time, including after a session ends, and fans each
// entry out to registered listeners (the websocket layer).
type LogHub struct {
	buffers   map[string][]string
	listeners []LogListener
	mu        sync.RWMutex
}

func NewLogHub() *LogHub {
	return &LogHub{
		buffers: make(map[string][]string),
	}
}

// Append records one entry for a device, dropping the oldest entry once
// the ring is full.
func (h *LogHub) Append(deviceID, message string) {
	h.mu.Lock()
	buf := append(h.buffers[deviceID], message)
	if len(buf) > logBufferSize {
		buf = buf[len(buf)-logBufferSize:]
	}
	h.buffers[deviceID] = buf
	listeners := make([]LogListener, len(h.listeners))
	copy(listeners, h.listeners)
	h.mu.Unlock()

	for _, l := range listeners {
		l(deviceID, message)
	}
}

// DeviceLogs returns a copy of a device's ring.
func (h *LogHub) DeviceLogs(deviceID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	buf := h.buffers[deviceID]
	out := make([]string, len(buf))
	copy(out, buf)
	return out
}

// ClearDeviceLogs empties a device's ring.
func (h *LogHub) ClearDeviceLogs(deviceID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.buffers, deviceID)
}

// Subscribe registers a listener for all future entries.
func (h *LogHub) Subscribe(l LogListener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, l)
}
