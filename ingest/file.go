package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/targodan/UberSpatchBoard/errors"
	"github.com/targodan/UberSpatchBoard/marshal"
	"github.com/targodan/UberSpatchBoard/message"
	"github.com/targodan/UberSpatchBoard/pkg/retry"
)

// DefaultPollInterval is how long the file source sleeps at end of
// file before looking for new lines.
const DefaultPollInterval = 100 * time.Millisecond

// FileDeps holds runtime dependencies for a FileSource.
type FileDeps struct {
	// Path of the live IRC log file to tail.
	Path string
	// Channel overrides the channel the marshaller extracted, when set.
	Channel string
	// PollInterval between end-of-file checks; defaults to
	// DefaultPollInterval.
	PollInterval time.Duration
	Marshaller   marshal.Marshaller
	Logger       *slog.Logger
}

// FileSource tails a single-channel IRC log file. It starts at the end
// of the file, so only lines written after Listen begins are ingested.
type FileSource struct {
	path         string
	channel      string
	pollInterval time.Duration
	marshaller   marshal.Marshaller
	logger       *slog.Logger
	retryConfig  retry.Config

	stop     chan struct{}
	stopOnce sync.Once
}

var _ Source = (*FileSource)(nil)

// NewFileSource creates a file source.
func NewFileSource(deps FileDeps) *FileSource {
	pollInterval := deps.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "file-source", "path", deps.Path)
	}

	return &FileSource{
		path:         deps.Path,
		channel:      deps.Channel,
		pollInterval: pollInterval,
		marshaller:   deps.Marshaller,
		logger:       logger,
		retryConfig:  retry.DefaultConfig(),
		stop:         make(chan struct{}),
	}
}

// Listen tails the file until Stop. Opening the file is retried with
// backoff so the board may start before the IRC client does.
func (f *FileSource) Listen(queue chan<- *message.Message) error {
	if f.marshaller == nil {
		return errors.WrapInvalid(errors.ErrNoMarshaller,
			"FileSource", "Listen", "marshaller validation")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-f.stop
		cancel()
	}()

	var file *os.File
	err := retry.Do(ctx, f.retryConfig, func() error {
		var openErr error
		file, openErr = os.Open(f.path)
		return openErr
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return errors.WrapTransient(err, "FileSource", "Listen", "open log file")
	}
	defer func() { _ = file.Close() }()

	// Skip the backlog; only lines arriving from now on matter.
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return errors.WrapTransient(err, "FileSource", "Listen", "seek to end")
	}

	reader := bufio.NewReader(file)
	pending := ""

	for {
		select {
		case <-f.stop:
			return nil
		default:
		}

		chunk, err := reader.ReadString('\n')
		if err == io.EOF {
			// Partial line: keep it and wait for the rest.
			pending += chunk
			select {
			case <-f.stop:
				return nil
			case <-time.After(f.pollInterval):
			}
			continue
		}
		if err != nil {
			return errors.WrapTransient(err, "FileSource", "Listen", "read log file")
		}

		line := strings.TrimRight(pending+chunk, "\r\n")
		pending = ""

		if !f.push(line, queue) {
			return nil
		}
	}
}

// push marshals one raw line and offers it to the queue. Returns false
// when Stop interrupted the offer.
func (f *FileSource) push(line string, queue chan<- *message.Message) bool {
	msg, err := f.marshaller.Marshal(line)
	if err != nil {
		f.logger.Debug("Dropping unmarshallable line.", "line", line, "error", err)
		return true
	}
	if msg == nil {
		return true
	}

	if f.channel != "" {
		msg.Channel = f.channel
	}

	select {
	case queue <- msg:
		return true
	case <-f.stop:
		return false
	}
}

// Stop asks Listen to return. Idempotent.
func (f *FileSource) Stop() {
	f.stopOnce.Do(func() { close(f.stop) })
}

// Name returns a human-readable description of this source.
func (f *FileSource) Name() string {
	return fmt.Sprintf("File: %s", f.path)
}

// ShortName returns the source type tag.
func (f *FileSource) ShortName() string {
	return "file"
}
