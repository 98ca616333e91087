package processor

import (
	"fmt"
	"sync"

	"github.com/lunfardo314/easywallet/ledger"
	"github.com/lunfardo314/easywallet/ledger/state"
	"github.com/lunfardo314/easywallet/ledger/transaction"
	"github.com/lunfardo314/unitrie/common"
	"go.uber.org/zap"
)

type (
	Config struct {
		// StrictTimeWindow makes Transfer outside its time window fail with OutsideTimeWindow.
		// By default such Transfer is committed without effect
		StrictTimeWindow bool
		// TimeWindowMillis is the length of the Transfer time window
		TimeWindowMillis int64
	}

	// Processor executes operations against the ledger state. Each operation runs on its own fork,
	// which is merged on success and dropped on failure. The failure of one operation never
	// affects other operations of the same block
	Processor struct {
		mutex sync.RWMutex
		cfg   Config
		state *state.Updatable
		log   *zap.SugaredLogger
	}
)

const (
	descInvalidSignature = "invalid signature"
	descNotSigned        = "operation is not signed"
	descAlreadyProcessed = "operation already processed"
	descWrongTimestamp   = "wrong timestamp"
	loggerName           = "processor"
)

func DefaultConfig() Config {
	return Config{
		StrictTimeWindow: false,
		TimeWindowMillis: ledger.DefaultTimeWindowMillis,
	}
}

func New(cfg Config, store ledger.StateStore, root common.VCommitment, log *zap.SugaredLogger) (*Processor, error) {
	u, err := state.NewUpdatable(store, root)
	if err != nil {
		return nil, fmt.Errorf("processor: %w", err)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cfg.TimeWindowMillis <= 0 {
		cfg.TimeWindowMillis = ledger.DefaultTimeWindowMillis
	}
	return &Processor{
		cfg:   cfg,
		state: u,
		log:   log.Named(loggerName),
	}, nil
}

func (p *Processor) Config() Config {
	return p.cfg
}

// Root is the current state root
func (p *Processor) Root() common.VCommitment {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	return p.state.Root().Clone()
}

// Readable is the read-only state at the current root
func (p *Processor) Readable() *state.Readable {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	return p.state.Readable()
}

func (p *Processor) GetWallet(pk ledger.PublicKey) (*ledger.Wallet, bool) {
	return p.Readable().GetWallet(pk)
}

func (p *Processor) GetReceipt(h ledger.Hash) (*ledger.Receipt, bool) {
	return p.Readable().GetReceipt(h)
}

func (p *Processor) executionContext(ts int64) ledger.ExecutionContext {
	return ledger.ExecutionContext{
		Timestamp:        ts,
		TimeWindowMillis: p.cfg.TimeWindowMillis,
		StrictTimeWindow: p.cfg.StrictTimeWindow,
	}
}

// Apply executes one operation with the ordering time ts (milliseconds) and commits the result
func (p *Processor) Apply(ts int64, op transaction.Operation) (*ledger.Receipt, error) {
	ret, err := p.ApplyBlock(ts, []transaction.Operation{op})
	if err != nil {
		return nil, err
	}
	return ret[0], nil
}

// ApplyBytes parses and applies one operation
func (p *Processor) ApplyBytes(ts int64, txBytes []byte) (*ledger.Receipt, error) {
	op, err := transaction.FromBytes(txBytes)
	if err != nil {
		return nil, err
	}
	return p.Apply(ts, op)
}

// ApplyBlock executes the ordered sequence of operations with the same ordering time ts
// and commits all of them to the state at once. Each operation sees effects of the preceding ones.
// Returns receipts in the order of operations. Error is returned only if the state can't be committed
func (p *Processor) ApplyBlock(ts int64, ops []transaction.Operation) ([]*ledger.Receipt, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	ctx := p.executionContext(ts)
	block := state.NewFork(p.state.Readable())
	ret := make([]*ledger.Receipt, len(ops))
	for i, op := range ops {
		ret[i] = p.process(block, ctx, op)
	}
	if err := p.state.Commit(block); err != nil {
		p.log.Errorf("block with %d operations @ %d failed to commit: %v", len(ops), ts, err)
		return nil, err
	}
	p.logBlock(ts, ret)
	return ret, nil
}

// process runs one operation: Received -> SignatureChecked -> Rejected | Validated -> Executed -> Committed | RolledBack
func (p *Processor) process(block *state.Fork, ctx ledger.ExecutionContext, op transaction.Operation) *ledger.Receipt {
	ret := &ledger.Receipt{
		Kind:      byte(op.Kind()),
		Timestamp: ctx.Timestamp,
	}
	if op.Signature() == nil {
		ret.Status = ledger.StatusRejected
		ret.Description = descNotSigned
		p.log.Debugf("%s rejected: %s", op.String(), ret.Description)
		return ret
	}
	txHash := op.Hash()
	ret.TxHash = txHash
	if _, already := block.GetReceipt(txHash); already {
		// history is never overwritten, the repeated operation is not recorded
		ret.Status = ledger.StatusRejected
		ret.Description = descAlreadyProcessed
		p.log.Debugf("%s rejected: %s", op.String(), ret.Description)
		return ret
	}
	if !op.Verify() {
		// rejected operations are not recorded in the state
		ret.Status = ledger.StatusRejected
		ret.Description = descInvalidSignature
		if tr, ok := op.(*transaction.Transfer); ok {
			if _, err := tr.Timestamp(); err != nil {
				ret.Description = descWrongTimestamp
			}
		}
		p.log.Debugf("%s rejected: %s", op.String(), ret.Description)
		return ret
	}

	fork := state.NewFork(block)
	var applied bool
	err := common.CatchPanicOrError(func() error {
		var err1 error
		applied, err1 = op.Execute(fork, ctx)
		return err1
	})
	if err != nil {
		// the fork is dropped with all its mutations
		ret.Status = ledger.StatusRolledBack
		if code, ok := ledger.ErrorCodeOf(err); ok {
			ret.HasCode = true
			ret.Code = code
			ret.Description = code.String()
		} else {
			ret.Description = err.Error()
		}
		p.log.Debugf("%s rolled back: %s", op.String(), ret.Description)
	} else {
		fork.MergeInto(block)
		ret.Status = ledger.StatusCommitted
		ret.Applied = applied
		if applied {
			p.log.Debugf("%s committed", op.String())
		} else {
			p.log.Debugf("%s committed without effect: outside of the time window @ %d", op.String(), ctx.Timestamp)
		}
	}
	block.PutReceipt(ret)
	return ret
}

func (p *Processor) logBlock(ts int64, receipts []*ledger.Receipt) {
	var committed, noEffect, rolledBack, rejected int
	for _, r := range receipts {
		switch r.Status {
		case ledger.StatusCommitted:
			committed++
			if !r.Applied {
				noEffect++
			}
		case ledger.StatusRolledBack:
			rolledBack++
		case ledger.StatusRejected:
			rejected++
		}
	}
	p.log.Infof("block @ %d: %d operations, committed: %d (without effect: %d), rolled back: %d, rejected: %d, root: %s",
		ts, len(receipts), committed, noEffect, rolledBack, rejected, p.state.Root().String())
}
