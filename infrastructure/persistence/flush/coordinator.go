// Package flush implements the persistence coordinator: debounced,
// per-node-serialized disk writes. Editing never blocks on I/O; a
// burst of keystrokes coalesces into one write per file once the
// debounce window closes.
package flush

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"atelier/application/ports"
	"atelier/domain/core/valueobjects"
	"atelier/pkg/observability"
)

// DefaultDebounce is the write coalescing window.
const DefaultDebounce = 500 * time.Millisecond

type key struct {
	node valueobjects.NodeID
	file valueobjects.FileID
}

type pendingWrite struct {
	timer     *time.Timer
	cancelled bool
}

// Coordinator implements ports.FlushCoordinator. Content is never
// captured at schedule time: the write re-resolves the file when the
// timer fires, so it always lands the latest content at the latest
// path and a deleted file is silently skipped.
type Coordinator struct {
	writer  ports.Materializer
	source  ports.FileResolver
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger

	debounce time.Duration
	retries  int

	mu      sync.Mutex
	pending map[key]*pendingWrite
	closed  bool

	nodeMu    sync.Mutex
	nodeLocks map[valueobjects.NodeID]*sync.Mutex

	wg sync.WaitGroup
}

// NewCoordinator creates a coordinator writing through the
// materializer. The file resolver is usually the workspace store.
func NewCoordinator(
	materializer ports.Materializer,
	source ports.FileResolver,
	debounce time.Duration,
	retries int,
	logger *zap.Logger,
) *Coordinator {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if retries < 1 {
		retries = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		writer:    materializer,
		source:    source,
		debounce:  debounce,
		retries:   retries,
		logger:    logger,
		pending:   make(map[key]*pendingWrite),
		nodeLocks: make(map[valueobjects.NodeID]*sync.Mutex),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "disk-writes",
			Timeout: 10 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// Schedule arms (or re-arms) the debounce timer for a file.
func (c *Coordinator) Schedule(nodeID valueobjects.NodeID, fileID valueobjects.FileID) {
	k := key{node: nodeID, file: fileID}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if p, exists := c.pending[k]; exists {
		p.timer.Reset(c.debounce)
		return
	}
	p := &pendingWrite{}
	p.timer = time.AfterFunc(c.debounce, func() { c.fire(k) })
	c.pending[k] = p
	observability.PendingWrites.Inc()
}

// Flush synchronously writes a file's pending edit, if any. Used on
// selection switches so leaving a file never races its debounce timer.
// Content is re-resolved at write time like any debounced write, so a
// flush racing a newer edit lands that edit's content, never an older
// copy.
func (c *Coordinator) Flush(nodeID valueobjects.NodeID, fileID valueobjects.FileID) error {
	k := key{node: nodeID, file: fileID}
	if !c.take(k) {
		return nil
	}
	snap, ok := c.source.ResolveFile(nodeID, fileID)
	if !ok {
		return nil
	}
	return c.write(nodeID, snap)
}

// FlushAll synchronously drains every pending write. Called on
// shutdown and before checkpoints.
func (c *Coordinator) FlushAll() error {
	c.mu.Lock()
	keys := make([]key, 0, len(c.pending))
	for k := range c.pending {
		keys = append(keys, k)
	}
	c.mu.Unlock()

	var firstErr error
	for _, k := range keys {
		if !c.take(k) {
			continue
		}
		snap, ok := c.source.ResolveFile(k.node, k.file)
		if !ok {
			continue
		}
		if err := c.write(k.node, snap); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Cancel drops any pending write for a file. Called before a file is
// deleted so no write-after-delete can occur.
func (c *Coordinator) Cancel(nodeID valueobjects.NodeID, fileID valueobjects.FileID) {
	c.take(key{node: nodeID, file: fileID})
}

// CancelNode drops every pending write for a node.
func (c *Coordinator) CancelNode(nodeID valueobjects.NodeID) {
	c.mu.Lock()
	keys := make([]key, 0)
	for k := range c.pending {
		if k.node.Equals(nodeID) {
			keys = append(keys, k)
		}
	}
	c.mu.Unlock()

	for _, k := range keys {
		c.take(k)
	}
}

// Close drains pending writes and stops accepting new ones.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := c.FlushAll()
	c.wg.Wait()
	return err
}

// take removes a pending entry, stopping its timer. Reports whether
// the entry existed, i.e. whether a write was actually due.
func (c *Coordinator) take(k key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, exists := c.pending[k]
	if !exists {
		return false
	}
	p.cancelled = true
	p.timer.Stop()
	delete(c.pending, k)
	observability.PendingWrites.Dec()
	return true
}

// fire runs when a debounce timer expires.
func (c *Coordinator) fire(k key) {
	c.mu.Lock()
	p, exists := c.pending[k]
	if !exists || p.cancelled {
		c.mu.Unlock()
		return
	}
	delete(c.pending, k)
	observability.PendingWrites.Dec()
	closed := c.closed
	c.wg.Add(1)
	c.mu.Unlock()
	defer c.wg.Done()

	if closed {
		return
	}

	snap, ok := c.source.ResolveFile(k.node, k.file)
	if !ok {
		// The file or its node disappeared, or the project tree does
		// not exist yet. Nothing to write.
		return
	}
	if err := c.write(k.node, snap); err != nil {
		c.logger.Error("debounced write failed",
			zap.String("node_id", k.node.String()),
			zap.String("file_id", k.file.String()),
			zap.Error(err))
	}
}

// write performs one disk write, serialized per node so a node's
// writes land in schedule order.
func (c *Coordinator) write(nodeID valueobjects.NodeID, snap ports.FileSnapshot) error {
	lock := c.nodeLock(nodeID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	var err error
	for attempt := 0; attempt < c.retries; attempt++ {
		_, err = c.breaker.Execute(func() (interface{}, error) {
			return nil, c.writer.SaveFile(context.Background(), snap)
		})
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	observability.FlushDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.FlushesTotal.WithLabelValues("error").Inc()
		return err
	}
	observability.FlushesTotal.WithLabelValues("ok").Inc()
	return nil
}

func (c *Coordinator) nodeLock(nodeID valueobjects.NodeID) *sync.Mutex {
	c.nodeMu.Lock()
	defer c.nodeMu.Unlock()
	lock, exists := c.nodeLocks[nodeID]
	if !exists {
		lock = &sync.Mutex{}
		c.nodeLocks[nodeID] = lock
	}
	return lock
}
