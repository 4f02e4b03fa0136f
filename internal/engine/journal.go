package engine

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"time"

	"go.uber.org/zap"

	"simpleboard/internal/model"
	"simpleboard/internal/storage"
)

var ErrJournalClosed = errors.New("move journal is closed")

type journalFlusher struct {
	activeSegment  *os.File
	seqNumber      uint64
	buffer         bytes.Buffer
	maxBufferBytes int
}

type journalMsg struct {
	record   model.MoveRecord
	buffered chan error
}

type JournalCfg struct {
	Path             string
	EnqueueTimeout   time.Duration
	FlushInterval    time.Duration
	MaxQueuedRecords int
	BufferBytes      int
}

/*
Journal is an append-only audit trail of settled moves. It mirrors the
board worker design: one goroutine owns the file handle and the buffer.
- Ordering: the channel preserves append order and sequence numbers are
  assigned by the writer goroutine, so they are gap free.
- Backpressure: bounded channel + enqueue timeout.
- Durability: records are buffered and fsynced on size, on a ticker and on
  shutdown.
Boards are never rebuilt from the journal; it only backs the history API.
*/
type Journal struct {
	flusher journalFlusher
	records chan journalMsg
	cfg     JournalCfg
	flushT  *time.Ticker
	stopped chan struct{}
	logger  *zap.Logger
}

const (
	payloadLenBytes         = 4
	checksumBytes           = 4
	seqNumBytes             = 8
	stateBytes              = 1
	indexBytes              = 4
	lenFieldSize            = 4
	defaultJournalBuffer    = 4 * 1024 * 1024
	minimalJournalBuffer    = 128
	defaultMaxQueuedRecords = 1024
	defaultJournalFlush     = time.Second
	defaultJournalEnqueue   = 2 * time.Second
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// NewJournal opens (or creates) the journal file and starts its writer. The
// returned cancel func stops the writer after a final flush; Done reports
// when that has happened.
func NewJournal(ctx context.Context, cfg JournalCfg, logger *zap.Logger) (*Journal, context.CancelFunc, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open journal: %w", err)
	}

	bufferBytes := cfg.BufferBytes
	if bufferBytes <= 0 {
		bufferBytes = defaultJournalBuffer
	}
	if bufferBytes < minimalJournalBuffer {
		bufferBytes = minimalJournalBuffer
	}
	maxQueue := cfg.MaxQueuedRecords
	if maxQueue <= 0 {
		maxQueue = defaultMaxQueuedRecords
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultJournalFlush
	}
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = defaultJournalEnqueue
	}

	j := &Journal{
		cfg:     cfg,
		records: make(chan journalMsg, maxQueue),
		flushT:  time.NewTicker(cfg.FlushInterval),
		stopped: make(chan struct{}),
		logger:  logger.With(zap.String("journal", cfg.Path)),
		flusher: journalFlusher{
			activeSegment:  f,
			seqNumber:      nextSequence(cfg.Path),
			maxBufferBytes: bufferBytes,
		},
	}

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer close(j.stopped)
		j.run(runCtx)
		j.flushT.Stop()
		if err := j.flusher.flush(); err != nil {
			j.logger.Error("final journal flush failed", zap.Error(err))
		}
		_ = j.flusher.activeSegment.Close()
	}()
	return j, cancel, nil
}

// Append hands rec to the writer and waits until it is buffered. The
// sequence number on rec is ignored; the writer assigns the next one.
func (j *Journal) Append(rec model.MoveRecord) error {
	msg := journalMsg{record: rec, buffered: make(chan error, 1)}
	select {
	case j.records <- msg:
	case <-j.stopped:
		return ErrJournalClosed
	case <-time.After(j.cfg.EnqueueTimeout):
		return errors.New("timeout after waiting for move record to be added to journal")
	}
	select {
	case err := <-msg.buffered:
		return err
	case <-j.stopped:
		return ErrJournalClosed
	}
}

// Done is closed once the writer has flushed and closed the file.
func (j *Journal) Done() <-chan struct{} {
	return j.stopped
}

// Load reads every intact record from disk. It stops at the first truncated
// or corrupted record; buffered but unflushed records are not visible.
func (j *Journal) Load() []model.MoveRecord {
	return loadJournal(j.cfg.Path, j.logger)
}

func (j *Journal) run(ctx context.Context) {
	for {
		select {
		case msg := <-j.records:
			msg.record.Sequence = j.flusher.seqNumber
			err := j.flusher.write(encodeRecord(msg.record))
			if err == nil {
				j.flusher.seqNumber++
			}
			msg.buffered <- err
		case <-j.flushT.C:
			if err := j.flusher.flush(); err != nil {
				j.logger.Error("periodic journal flush failed", zap.Error(err))
			}
		case <-ctx.Done():
			j.logger.Debug("journal shutting down")
			j.drain()
			return
		}
	}
}

// drain buffers records that were already queued when shutdown began.
func (j *Journal) drain() {
	for {
		select {
		case msg := <-j.records:
			msg.record.Sequence = j.flusher.seqNumber
			err := j.flusher.write(encodeRecord(msg.record))
			if err == nil {
				j.flusher.seqNumber++
			}
			msg.buffered <- err
		default:
			return
		}
	}
}

func (f *journalFlusher) write(data []byte) error {
	if f.activeSegment == nil {
		return errors.New("no active segment")
	}
	if len(data) > f.maxBufferBytes {
		return fmt.Errorf("journal entry (%d bytes) exceeds buffer size (%d bytes)", len(data), f.maxBufferBytes)
	}
	if f.buffer.Len()+len(data) > f.maxBufferBytes {
		if err := f.flush(); err != nil {
			return err
		}
	}
	_, err := f.buffer.Write(data)
	return err
}

func (f *journalFlusher) flush() error {
	if f.activeSegment == nil {
		return errors.New("no active segment")
	}
	if f.buffer.Len() == 0 {
		return nil
	}
	if err := storage.Write(f.activeSegment, f.buffer.Bytes()); err != nil {
		return err
	}
	err := f.activeSegment.Sync()
	if err == nil {
		f.buffer.Reset()
	}
	return err
}

// nextSequence scans record headers and returns the sequence to use next.
func nextSequence(path string) uint64 {
	next := uint64(0)
	_ = scanJournal(path, func(payload []byte) bool {
		if len(payload) < seqNumBytes {
			return false
		}
		next = binary.BigEndian.Uint64(payload[:seqNumBytes]) + 1
		return true
	})
	return next
}

func loadJournal(path string, logger *zap.Logger) []model.MoveRecord {
	records := make([]model.MoveRecord, 0)
	err := scanJournal(path, func(payload []byte) bool {
		rec, err := decodePayload(payload)
		if err != nil {
			logger.Warn("undecodable journal record, stopping", zap.Int("record", len(records)), zap.Error(err))
			return false
		}
		records = append(records, rec)
		return true
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("journal scan stopped early", zap.Int("loaded", len(records)), zap.Error(err))
	}
	return records
}

// scanJournal walks the framed records of the file at path and calls fn with
// each checksum-verified payload until fn returns false or a record is
// truncated or corrupt.
func scanJournal(path string, fn func(payload []byte) bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	size := storage.Size(path)

	var offset int64
	for record := 0; offset < size; record++ {
		header, err := storage.Read(f, offset, payloadLenBytes+checksumBytes)
		if err != nil {
			return err
		}
		if len(header) < payloadLenBytes+checksumBytes {
			return fmt.Errorf("record %d: truncated header at offset %d", record, offset)
		}
		payloadLen := binary.BigEndian.Uint32(header[:payloadLenBytes])
		expected := binary.BigEndian.Uint32(header[payloadLenBytes:])
		offset += payloadLenBytes + checksumBytes

		payload, err := storage.Read(f, offset, int(payloadLen))
		if err != nil {
			return err
		}
		if len(payload) < int(payloadLen) {
			return fmt.Errorf("record %d: truncated payload at offset %d (expected %d bytes)", record, offset, payloadLen)
		}
		offset += int64(payloadLen)

		if actual := crc32.Checksum(payload, castagnoli); actual != expected {
			return fmt.Errorf("record %d: crc mismatch: expected %x, got %x", record, expected, actual)
		}
		if !fn(payload) {
			return nil
		}
	}
	return nil
}

/*
encodeRecord frames a move record for the journal:

| PayloadLength | CRC32C  | Sequence | State  | SrcIdx  | DstIdx  | Board | Item | SrcBucket | DstBucket | Cause |
|---------------|---------|----------|--------|---------|---------|-------|------|-----------|-----------|-------|
| 4 bytes       | 4 bytes | 8 bytes  | 1 byte | 4 bytes | 4 bytes | str   | str  | str       | str       | str   |

Each str is a 4 byte length followed by that many bytes. The CRC32C covers
the payload, i.e. everything after the checksum.
*/
func encodeRecord(rec model.MoveRecord) []byte {
	strs := []string{rec.BoardID, rec.ItemID, rec.Request.SourceBucketID, rec.Request.DestinationBucketID, rec.Cause}
	size := seqNumBytes + stateBytes + 2*indexBytes
	for _, s := range strs {
		size += lenFieldSize + len(s)
	}

	payload := make([]byte, 0, size)
	payload = binary.BigEndian.AppendUint64(payload, rec.Sequence)
	payload = append(payload, byte(rec.State))
	payload = binary.BigEndian.AppendUint32(payload, uint32(int32(rec.Request.SourceIndex)))
	payload = binary.BigEndian.AppendUint32(payload, uint32(int32(rec.Request.DestinationIndex)))
	for _, s := range strs {
		payload = binary.BigEndian.AppendUint32(payload, uint32(len(s)))
		payload = append(payload, s...)
	}

	record := make([]byte, 0, payloadLenBytes+checksumBytes+len(payload))
	record = binary.BigEndian.AppendUint32(record, uint32(len(payload)))
	record = binary.BigEndian.AppendUint32(record, crc32.Checksum(payload, castagnoli))
	return append(record, payload...)
}

func decodePayload(payload []byte) (model.MoveRecord, error) {
	fixed := seqNumBytes + stateBytes + 2*indexBytes
	if len(payload) < fixed {
		return model.MoveRecord{}, fmt.Errorf("payload too short: %d bytes (minimum %d)", len(payload), fixed)
	}

	var rec model.MoveRecord
	pos := 0
	rec.Sequence = binary.BigEndian.Uint64(payload[pos:])
	pos += seqNumBytes

	rec.State = model.MoveState(payload[pos])
	if !rec.State.Terminal() {
		return model.MoveRecord{}, fmt.Errorf("invalid move state: %d", payload[pos])
	}
	pos += stateBytes

	rec.Request.SourceIndex = int(int32(binary.BigEndian.Uint32(payload[pos:])))
	pos += indexBytes
	rec.Request.DestinationIndex = int(int32(binary.BigEndian.Uint32(payload[pos:])))
	pos += indexBytes

	fields := []*string{&rec.BoardID, &rec.ItemID, &rec.Request.SourceBucketID, &rec.Request.DestinationBucketID, &rec.Cause}
	for i, dst := range fields {
		if pos+lenFieldSize > len(payload) {
			return model.MoveRecord{}, fmt.Errorf("field %d: length exceeds payload bounds", i)
		}
		n := int(binary.BigEndian.Uint32(payload[pos:]))
		pos += lenFieldSize
		if pos+n > len(payload) {
			return model.MoveRecord{}, fmt.Errorf("field %d: length (%d) exceeds payload bounds", i, n)
		}
		*dst = string(payload[pos : pos+n])
		pos += n
	}
	return rec, nil
}
