package clickhouse

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const (
	defaultBatchSize     = 500
	defaultFlushInterval = 2 * time.Second
	defaultShutdownWait  = 10 * time.Second
	maxRetries           = 3
)

// UserRow represents a row in the users table
type UserRow struct {
	DirectoryID string
	UserID      string
	UserName    string
	Event       string
	DeliveryID  string
	Attributes  string // JSON-serialized attribute map
	ReceivedAt  time.Time
}

// BatchBuffer accumulates user rows and flushes them to ClickHouse in
// batches, either when the batch fills up or on the flush interval.
type BatchBuffer struct {
	conn   driver.Conn
	logger *slog.Logger

	mu   sync.Mutex
	rows []UserRow

	batchSize     int
	flushInterval time.Duration

	closeCh   chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewBatchBuffer creates a buffer and starts its flush loop.
func NewBatchBuffer(conn driver.Conn, logger *slog.Logger, batchSize int, flushInterval time.Duration) *BatchBuffer {
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}

	b := &BatchBuffer{
		conn:          conn,
		logger:        logger,
		rows:          make([]UserRow, 0, batchSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		closeCh:       make(chan struct{}),
	}

	b.wg.Add(1)
	go b.flushLoop()
	return b
}

// Add queues a row. A full batch triggers an immediate flush.
func (b *BatchBuffer) Add(row UserRow) {
	b.mu.Lock()
	b.rows = append(b.rows, row)
	full := len(b.rows) >= b.batchSize
	b.mu.Unlock()

	if full {
		b.Flush()
	}
}

// Flush writes all queued rows now.
func (b *BatchBuffer) Flush() {
	b.mu.Lock()
	if len(b.rows) == 0 {
		b.mu.Unlock()
		return
	}
	rows := b.rows
	b.rows = make([]UserRow, 0, b.batchSize)
	b.mu.Unlock()

	if err := b.insert(rows); err != nil {
		b.logger.Error("flushing user batch failed", "rows", len(rows), "error", err)
	}
}

func (b *BatchBuffer) insert(rows []UserRow) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownWait)
	defer cancel()

	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = b.trySend(ctx, rows)
		if err == nil {
			return nil
		}
		b.logger.Warn("batch insert failed, retrying", "attempt", attempt, "error", err)
	}
	return fmt.Errorf("inserting %d rows after %d attempts: %w", len(rows), maxRetries, err)
}

func (b *BatchBuffer) trySend(ctx context.Context, rows []UserRow) error {
	batch, err := b.conn.PrepareBatch(ctx, `
		INSERT INTO users (directory_id, user_id, user_name, event, delivery_id, attributes, received_at)`)
	if err != nil {
		return fmt.Errorf("preparing batch: %w", err)
	}

	for _, row := range rows {
		if err := batch.Append(
			row.DirectoryID,
			row.UserID,
			row.UserName,
			row.Event,
			row.DeliveryID,
			row.Attributes,
			row.ReceivedAt,
		); err != nil {
			return fmt.Errorf("appending row: %w", err)
		}
	}

	return batch.Send()
}

func (b *BatchBuffer) flushLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.Flush()
		case <-b.closeCh:
			b.Flush()
			return
		}
	}
}

// Close flushes remaining rows and stops the flush loop.
func (b *BatchBuffer) Close() {
	b.closeOnce.Do(func() {
		close(b.closeCh)
	})
	b.wg.Wait()
}
