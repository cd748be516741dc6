package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/nulzo/chat-router/internal/store"
	"github.com/nulzo/chat-router/internal/store/model"
	"go.uber.org/zap"
)

// Ingestor handles the asynchronous persistence of call logs.
type Ingestor interface {
	Log(call *model.CallLog)
	Start(ctx context.Context)
	// Stop flushes pending logs and waits for the worker to exit.
	Stop()
}

type IngestorOption func(*ingestor)

func WithBatchSize(n int) IngestorOption {
	return func(i *ingestor) {
		i.batchSize = n
	}
}

func WithFlushInterval(d time.Duration) IngestorOption {
	return func(i *ingestor) {
		i.flushTime = d
	}
}

func WithBufferSize(n int) IngestorOption {
	return func(i *ingestor) {
		i.logChan = make(chan *model.CallLog, n)
	}
}

type ingestor struct {
	logger    *zap.Logger
	repo      store.Repository
	logChan   chan *model.CallLog
	batchSize int
	flushTime time.Duration
	done      chan struct{}
	stopOnce  sync.Once
}

func NewIngestor(logger *zap.Logger, repo store.Repository, opts ...IngestorOption) Ingestor {
	i := &ingestor{
		logger:    logger,
		repo:      repo,
		logChan:   make(chan *model.CallLog, 10000),
		batchSize: 50,
		flushTime: 5 * time.Second,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Log never blocks; when the buffer is full the entry is dropped.
func (i *ingestor) Log(call *model.CallLog) {
	select {
	case i.logChan <- call:
	default:
		i.logger.Warn("analytics buffer full, dropping call log", zap.String("provider", call.ProviderID))
	}
}

func (i *ingestor) Start(ctx context.Context) {
	go i.worker(ctx)
}

func (i *ingestor) Stop() {
	i.stopOnce.Do(func() {
		close(i.logChan)
	})
	<-i.done
}

func (i *ingestor) worker(ctx context.Context) {
	defer close(i.done)

	batch := make([]*model.CallLog, 0, i.batchSize)
	ticker := time.NewTicker(i.flushTime)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		err := i.repo.WithTx(context.Background(), func(tx store.Repository) error {
			for _, call := range batch {
				if err := tx.Calls().Log(context.Background(), call); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			i.logger.Error("failed to persist call logs", zap.Int("count", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case call, ok := <-i.logChan:
			if !ok {
				flush()
				return
			}
			batch = append(batch, call)
			if len(batch) >= i.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			// drain what is already buffered
			for {
				select {
				case call, ok := <-i.logChan:
					if !ok {
						flush()
						return
					}
					batch = append(batch, call)
				default:
					flush()
					return
				}
			}
		}
	}
}
