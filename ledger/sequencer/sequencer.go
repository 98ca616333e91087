package sequencer

import (
	"errors"
	"fmt"
	"time"

	"github.com/lunfardo314/easywallet/ledger"
	"github.com/lunfardo314/easywallet/ledger/indexer"
	"github.com/lunfardo314/easywallet/ledger/processor"
	"github.com/lunfardo314/easywallet/ledger/transaction"
	"github.com/lunfardo314/easywallet/util/fifoqueue"
	"github.com/lunfardo314/easywallet/util/waitingroom"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type (
	Config struct {
		// MaxBatch maximum number of operations applied as one block
		MaxBatch int
		// HoldEarlyTransfers makes a Transfer submitted not later than its TxTime wait
		// until the ordering time passes TxTime, so it is executed within its time window
		HoldEarlyTransfers bool
		// PollPeriod of the waiting room of held transfers
		PollPeriod time.Duration
	}

	// Sequencer is the single writer of the processor. Submitted operations are queued and
	// applied in blocks by one goroutine, each block stamped with the ordering time from the time source
	Sequencer struct {
		cfg        Config
		proc       *processor.Processor
		timeSource func() int64
		queue      *fifoqueue.Queue[transaction.Operation]
		waiting    *waitingroom.WaitingRoom
		onReceipt  func(r *ledger.Receipt)
		indexer    *indexer.Indexer
		lastTs     int64
		started    atomic.Bool
		stopped    atomic.Bool
		done       chan struct{}
		counters   counters
		log        *zap.SugaredLogger
	}

	counters struct {
		submitted  atomic.Uint64
		held       atomic.Uint64
		blocks     atomic.Uint64
		committed  atomic.Uint64
		rolledBack atomic.Uint64
		rejected   atomic.Uint64
		dropped    atomic.Uint64
	}

	Stats struct {
		Submitted  uint64
		Held       uint64
		Blocks     uint64
		Committed  uint64
		RolledBack uint64
		Rejected   uint64
		Dropped    uint64
	}
)

const defaultMaxBatch = 100

var (
	ErrStopped   = errors.New("sequencer is stopped")
	ErrNotSigned = errors.New("operation is not signed")
)

func DefaultConfig() Config {
	return Config{
		MaxBatch: defaultMaxBatch,
	}
}

func New(proc *processor.Processor, cfg Config, timeSource func() int64, log *zap.SugaredLogger) *Sequencer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = defaultMaxBatch
	}
	ret := &Sequencer{
		cfg:        cfg,
		proc:       proc,
		timeSource: timeSource,
		queue:      fifoqueue.New[transaction.Operation](),
		done:       make(chan struct{}),
		log:        log.Named("sequencer"),
	}
	if cfg.HoldEarlyTransfers {
		ret.waiting = waitingroom.New(timeSource, cfg.PollPeriod)
	}
	return ret
}

// OnReceipt sets the callback called with every receipt from the consumer goroutine. Must be set before Start
func (s *Sequencer) OnReceipt(fun func(r *ledger.Receipt)) {
	s.onReceipt = fun
}

// WithIndexer makes the sequencer update the indexer after each block. Must be set before Start
func (s *Sequencer) WithIndexer(inr *indexer.Indexer) *Sequencer {
	s.indexer = inr
	return s
}

func (s *Sequencer) Start() {
	if s.started.Swap(true) {
		return
	}
	go func() {
		s.log.Infof("STARTED")
		s.queue.ConsumeBatches(s.cfg.MaxBatch, s.applyBatch)
		s.log.Infof("STOPPED. %s", s.Stats().String())
		close(s.done)
	}()
}

// Stop stops accepting operations, applies everything queued and waits until done.
// Held transfers are dropped
func (s *Sequencer) Stop() {
	if s.stopped.Swap(true) {
		return
	}
	if s.waiting != nil {
		s.counters.dropped.Add(uint64(s.waiting.Stop()))
	}
	s.queue.Close()
	if s.started.Load() {
		<-s.done
		return
	}
	s.counters.dropped.Add(uint64(s.queue.Len()))
}

// Submit parses and queues the operation. Returns hash of the operation
func (s *Sequencer) Submit(txBytes []byte) (ledger.Hash, error) {
	op, err := transaction.FromBytes(txBytes)
	if err != nil {
		s.counters.dropped.Inc()
		s.log.Debugf("operation bytes dropped: %v", err)
		return ledger.Hash{}, err
	}
	return s.SubmitOperation(op)
}

func (s *Sequencer) SubmitOperation(op transaction.Operation) (ledger.Hash, error) {
	if s.stopped.Load() {
		return ledger.Hash{}, ErrStopped
	}
	if op.Signature() == nil {
		s.counters.dropped.Inc()
		return ledger.Hash{}, ErrNotSigned
	}
	s.counters.submitted.Inc()
	txHash := op.Hash()
	if s.hold(op) {
		return txHash, nil
	}
	return txHash, s.enqueue(op)
}

// hold puts the early transfer into the waiting room
func (s *Sequencer) hold(op transaction.Operation) bool {
	if s.waiting == nil {
		return false
	}
	tr, ok := op.(*transaction.Transfer)
	if !ok {
		return false
	}
	txTime, err := tr.Timestamp()
	if err != nil || txTime < s.timeSource() {
		return false
	}
	if !s.waiting.WaitUntil(txTime+1, func() { _ = s.enqueue(op) }) {
		return false
	}
	s.counters.held.Inc()
	s.log.Debugf("held until %d: %s", txTime+1, op.String())
	return true
}

func (s *Sequencer) enqueue(op transaction.Operation) error {
	if err := s.queue.Write(op); err != nil {
		s.counters.dropped.Inc()
		return ErrStopped
	}
	return nil
}

// applyBatch runs in the consumer goroutine. The ordering time never decreases
func (s *Sequencer) applyBatch(ops []transaction.Operation) {
	ts := s.timeSource()
	if ts < s.lastTs {
		ts = s.lastTs
	}
	s.lastTs = ts

	receipts, err := s.proc.ApplyBlock(ts, ops)
	if err != nil {
		s.counters.dropped.Add(uint64(len(ops)))
		s.log.Errorf("block of %d operations @ %d dropped: %v", len(ops), ts, err)
		return
	}
	s.counters.blocks.Inc()
	if s.indexer != nil {
		if err = s.indexer.UpdateFromBlock(ops, receipts); err != nil {
			s.log.Errorf("ledger state was updated but indexer update failed with '%v'", err)
		}
	}
	for _, r := range receipts {
		switch r.Status {
		case ledger.StatusCommitted:
			s.counters.committed.Inc()
		case ledger.StatusRolledBack:
			s.counters.rolledBack.Inc()
		case ledger.StatusRejected:
			s.counters.rejected.Inc()
		}
		if s.onReceipt != nil {
			s.onReceipt(r)
		}
	}
}

func (s *Sequencer) Stats() Stats {
	return Stats{
		Submitted:  s.counters.submitted.Load(),
		Held:       s.counters.held.Load(),
		Blocks:     s.counters.blocks.Load(),
		Committed:  s.counters.committed.Load(),
		RolledBack: s.counters.rolledBack.Load(),
		Rejected:   s.counters.rejected.Load(),
		Dropped:    s.counters.dropped.Load(),
	}
}

func (st Stats) String() string {
	return fmt.Sprintf("submitted: %d, held: %d, blocks: %d, committed: %d, rolled back: %d, rejected: %d, dropped: %d",
		st.Submitted, st.Held, st.Blocks, st.Committed, st.RolledBack, st.Rejected, st.Dropped)
}
