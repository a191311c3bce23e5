package application_test

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/XaviFdez/proyecto-emergencia/internal/application"
	"github.com/XaviFdez/proyecto-emergencia/internal/domain"
	"github.com/XaviFdez/proyecto-emergencia/internal/wav"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeInput advances the clock by period on every read, like a peripheral
// that blocks until its DMA buffer fills.
type fakeInput struct {
	clock     *fakeClock
	period    time.Duration
	readBytes int
	openErr   error
	readErr   error
	failAt    int

	reads  int
	opened int
	closed int
}

func (f *fakeInput) Name() string { return "fake" }

func (f *fakeInput) Open(_ wav.Format, _ int) (application.InputStream, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opened++
	return &fakeInputStream{input: f}, nil
}

type fakeInputStream struct {
	input *fakeInput
}

func (s *fakeInputStream) Read(p []byte) (int, error) {
	f := s.input
	if f.readErr != nil && f.reads == f.failAt {
		return 0, f.readErr
	}
	if f.clock != nil {
		f.clock.Advance(f.period)
	}
	n := len(p)
	if f.readBytes > 0 && f.readBytes < n {
		n = f.readBytes
	}
	for i := 0; i < n; i++ {
		p[i] = byte(f.reads)
	}
	f.reads++
	return n, nil
}

func (s *fakeInputStream) Close() error {
	s.input.closed++
	return nil
}

// memStore keeps clips in memory and counts open handles.
type memStore struct {
	mu        sync.Mutex
	files     map[string][]byte
	open      int
	createErr error
}

func newMemStore() *memStore {
	return &memStore{files: make(map[string][]byte)}
}

func (m *memStore) put(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = data
}

func (m *memStore) get(name string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.files[name]
}

func (m *memStore) openHandles() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

func (m *memStore) Create(name string) (application.ClipWriter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.files[name] = nil
	m.open++
	return &memFile{store: m, name: name}, nil
}

func (m *memStore) Open(name string) (application.ClipReader, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[name]; !ok {
		return nil, fmt.Errorf("opening %s: %w", name, os.ErrNotExist)
	}
	m.open++
	return &memFile{store: m, name: name}, nil
}

func (m *memStore) List() ([]domain.Clip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clips := make([]domain.Clip, 0, len(m.files))
	for name, data := range m.files {
		clips = append(clips, domain.Clip{Name: name, Size: int64(len(data))})
	}
	return clips, nil
}

type memFile struct {
	store  *memStore
	name   string
	pos    int64
	closed bool
}

func (f *memFile) Write(p []byte) (int, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	data := f.store.files[f.name]
	if end := f.pos + int64(len(p)); end > int64(len(data)) {
		data = append(data, make([]byte, end-int64(len(data)))...)
	}
	copy(data[f.pos:], p)
	f.store.files[f.name] = data
	f.pos += int64(len(p))
	return len(p), nil
}

func (f *memFile) Read(p []byte) (int, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	data := f.store.files[f.name]
	if f.pos >= int64(len(data)) {
		return 0, io.EOF
	}
	n := copy(p, data[f.pos:])
	f.pos += int64(n)
	return n, nil
}

func (f *memFile) Seek(offset int64, whence int) (int64, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	switch whence {
	case io.SeekStart:
		f.pos = offset
	case io.SeekCurrent:
		f.pos += offset
	case io.SeekEnd:
		f.pos = int64(len(f.store.files[f.name])) + offset
	}
	if f.pos < 0 {
		return 0, errors.New("negative seek")
	}
	return f.pos, nil
}

func (f *memFile) Close() error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if f.closed {
		return errors.New("file already closed")
	}
	f.closed = true
	f.store.open--
	return nil
}

// pcmDecoder reads the canonical header and then 16-bit samples.
type pcmDecoder struct {
	r      io.Reader
	format wav.Format
}

func (d *pcmDecoder) Format() wav.Format { return d.format }

func (d *pcmDecoder) Decode(dst []int16) (int, error) {
	buf := make([]byte, len(dst)*2)
	n, err := io.ReadFull(d.r, buf)
	samples := n / 2
	for i := 0; i < samples; i++ {
		dst[i] = int16(binary.LittleEndian.Uint16(buf[2*i:]))
	}
	if samples == 0 && (err == io.EOF || err == io.ErrUnexpectedEOF) {
		return 0, io.EOF
	}
	return samples, nil
}

type pcmDecoderFactory struct{}

func (pcmDecoderFactory) NewDecoder(r io.ReadSeeker) (application.Decoder, error) {
	h, err := wav.ReadHeader(r)
	if err != nil {
		return nil, err
	}
	return &pcmDecoder{r: io.LimitReader(r, int64(h.DataSize)), format: h.Format}, nil
}

type fakeOutput struct {
	mu      sync.Mutex
	openErr error
	opened  int
	closed  int
	written []int16
}

func (f *fakeOutput) Name() string { return "fake" }

func (f *fakeOutput) Open(_ wav.Format) (application.OutputStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opened++
	return &fakeOutputStream{output: f}, nil
}

func (f *fakeOutput) closedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeOutput) samples() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written)
}

type fakeOutputStream struct {
	output *fakeOutput
}

func (s *fakeOutputStream) Write(samples []int16) error {
	s.output.mu.Lock()
	defer s.output.mu.Unlock()
	s.output.written = append(s.output.written, samples...)
	return nil
}

func (s *fakeOutputStream) Close() error {
	s.output.mu.Lock()
	defer s.output.mu.Unlock()
	s.output.closed++
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return nil
}

// wavClip builds a 16-bit mono clip holding count samples.
func wavClip(count int) []byte {
	data := wav.Encode(wav.DefaultFormat(), uint32(count*2))
	for i := 0; i < count; i++ {
		data = binary.LittleEndian.AppendUint16(data, uint16(i))
	}
	return data
}
