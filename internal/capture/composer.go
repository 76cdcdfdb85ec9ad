package capture

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrRecorderBusy = errors.New("a recording is already in progress")
	ErrNotRecording = errors.New("no recording in progress")
)

// Per-type attachment size ceilings, matching the platform's media limits.
var maxSize = map[string]int{
	"image":    5 << 20,
	"audio":    16 << 20,
	"video":    16 << 20,
	"document": 100 << 20,
}

// Media is a binary ready for the media transfer unit.
type Media struct {
	Data     []byte
	Ext      string
	Type     string
	FileName string
}

// Composer holds the per-surface composing state: at most one pending
// attachment OR finished recording at a time, modeled as a single-owner slot
// so the two can never coexist.
type Composer struct {
	mu sync.Mutex

	recording   bool
	recordStart time.Time
	buf         bytes.Buffer

	slot          *Media
	slotRecording bool
}

func NewComposer() *Composer {
	return &Composer{}
}

// SetAttachment places a file in the slot after validating its size ceiling,
// displacing any recording in progress or already captured.
func (c *Composer) SetAttachment(data []byte, ext, fileName, mediaType string) error {
	limit, ok := maxSize[mediaType]
	if !ok {
		return fmt.Errorf("unsupported attachment type %q", mediaType)
	}
	if len(data) > limit {
		return fmt.Errorf("%s exceeds the %d MB limit for %s attachments", fileName, limit>>20, mediaType)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.recording = false
	c.buf.Reset()
	c.slot = &Media{Data: data, Ext: ext, Type: mediaType, FileName: fileName}
	c.slotRecording = false
	return nil
}

// StartRecording begins an audio capture. Any pending file attachment is
// cleared first; starting while already recording is rejected.
func (c *Composer) StartRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.recording {
		return ErrRecorderBusy
	}

	c.slot = nil
	c.slotRecording = false
	c.buf.Reset()
	c.recording = true
	c.recordStart = time.Now()
	return nil
}

// AppendAudio adds captured bytes to the active recording.
func (c *Composer) AppendAudio(chunk []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.recording {
		return ErrNotRecording
	}
	c.buf.Write(chunk)
	return nil
}

// StopRecording finalizes the capture into the slot and reports the elapsed
// recording time.
func (c *Composer) StopRecording() (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.recording {
		return 0, ErrNotRecording
	}

	elapsed := time.Since(c.recordStart)
	data := make([]byte, c.buf.Len())
	copy(data, c.buf.Bytes())
	c.buf.Reset()
	c.recording = false

	c.slot = &Media{Data: data, Ext: "ogg", Type: "audio", FileName: "recording.ogg"}
	c.slotRecording = true
	return elapsed, nil
}

// Discard releases whatever the slot holds and aborts any active recording.
func (c *Composer) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.recording = false
	c.buf.Reset()
	c.slot = nil
	c.slotRecording = false
}

// Preview returns the slot contents without transferring ownership.
func (c *Composer) Preview() (*Media, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.slot == nil {
		return nil, false
	}
	return c.slot, true
}

// Recording reports whether a capture is currently active.
func (c *Composer) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

// TakeMedia hands the slot contents to the caller and clears it: ownership
// transfers exactly once, on send.
func (c *Composer) TakeMedia() *Media {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.slot
	c.slot = nil
	c.slotRecording = false
	return m
}

// Registry tracks one composer per input surface (conversation view).
type Registry struct {
	mu        sync.Mutex
	composers map[string]*Composer
}

func NewRegistry() *Registry {
	return &Registry{composers: make(map[string]*Composer)}
}

// Get returns the composer for a surface, creating it on first use.
func (r *Registry) Get(surfaceID string) *Composer {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.composers[surfaceID]
	if !ok {
		c = NewComposer()
		r.composers[surfaceID] = c
	}
	return c
}

// Release drops a surface's composer on teardown, freeing any held media.
func (r *Registry) Release(surfaceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.composers, surfaceID)
}
