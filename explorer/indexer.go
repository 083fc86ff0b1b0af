/*
Package explorer reads DID, schema and credential definition writes of a
cheqd ledger through its CometBFT RPC and serves them as JSON views. An
Indexer polls the ledger and publishes immutable snapshots, the HTTP handlers
only read the latest snapshot.
*/
package explorer

import (
	"context"
	"sync"
	"time"

	"github.com/findy-network/campus-agent/agent/sched"
	"github.com/findy-network/campus-agent/explorer/rpc"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

const (
	DefaultPollInterval = 10 * time.Second
	DefaultPerPage      = 50
)

type Indexer struct {
	rpc     *rpc.Client
	perPage int
	task    *sched.Task
	now     func() time.Time

	lk    sync.RWMutex
	snap  *Snapshot
	times map[int64]time.Time // block header times by height
}

// NewIndexer creates a stopped indexer which polls every interval.
func NewIndexer(c *rpc.Client, interval time.Duration) *Indexer {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ix := &Indexer{
		rpc:     c,
		perPage: DefaultPerPage,
		now:     time.Now,
		snap:    &Snapshot{},
		times:   make(map[int64]time.Time),
	}
	ix.task = sched.New("ledger indexer", interval, ix.poll)
	return ix
}

// Start refreshes once in the background and starts polling.
func (ix *Indexer) Start() {
	go ix.poll()
	ix.task.Start()
}

func (ix *Indexer) Stop() {
	ix.task.Stop()
}

// Task returns the polling task.
func (ix *Indexer) Task() *sched.Task {
	return ix.task
}

func (ix *Indexer) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), ix.task.Interval()+rpc.DefaultTimeout)
	defer cancel()

	if _, err := ix.Refresh(ctx); err != nil {
		glog.Warningf("ledger refresh: %v", err)
	}
}

// Snapshot returns the latest snapshot. Callers must not modify it.
func (ix *Indexer) Snapshot() *Snapshot {
	ix.lk.RLock()
	defer ix.lk.RUnlock()
	return ix.snap
}

func (ix *Indexer) publish(s *Snapshot) {
	ix.lk.Lock()
	defer ix.lk.Unlock()
	ix.snap = s
}

// Refresh reads the ledger and publishes a new snapshot. On failure the
// previous views are kept and the snapshot is marked disconnected.
func (ix *Indexer) Refresh(ctx context.Context) (s *Snapshot, err error) {
	defer func() {
		if err != nil {
			prev := *ix.Snapshot()
			prev.Connected = false
			prev.Error = err.Error()
			prev.UpdatedAt = ix.now()
			ix.publish(&prev)
		}
	}()
	defer err2.Handle(&err, "refresh")

	st := try.To1(ix.rpc.Status(ctx))
	vals := Validators(try.To1(ix.rpc.Validators(ctx)).Validators)
	didTxs := try.To1(ix.rpc.TxSearch(ctx, DIDQuery, ix.perPage))
	resTxs := try.To1(ix.rpc.TxSearch(ctx, ResourceQuery, ix.perPage))

	s = &Snapshot{
		Connected: true,
		UpdatedAt: ix.now(),
		Health: NetworkHealth{
			Network:         st.NodeInfo.Network,
			BlockHeight:     int64(st.SyncInfo.LatestBlockHeight),
			Syncing:         st.SyncInfo.CatchingUp,
			LatestBlockTime: st.SyncInfo.LatestBlockTime,
		},
		Validators: vals,
	}
	s.Stats.TotalDIDs = int(didTxs.TotalCount)
	s.Stats.ActiveValidators = len(vals)

	if b, err := ix.rpc.Block(ctx, int64(st.SyncInfo.LatestBlockHeight)); err == nil {
		info := Block(b, vals)
		s.LatestBlock = &info
		ix.cacheTime(info.Height, info.Timestamp)
	} else {
		glog.V(1).Infoln("latest block:", err)
	}

	for _, tx := range didTxs.Txs {
		d := Decode(tx)
		ts := ix.timestamp(ctx, tx, st.SyncInfo)
		s.Transactions = append(s.Transactions, transaction(tx, d, ts))
		s.DIDs = append(s.DIDs, didDocument(tx, d, ts))
	}
	for _, tx := range resTxs.Txs {
		d := Decode(tx)
		ts := ix.timestamp(ctx, tx, st.SyncInfo)
		s.Transactions = append(s.Transactions, transaction(tx, d, ts))
		s.Resources = append(s.Resources, resource(tx, d, ts))
		switch d.ContentType {
		case ContentSchema:
			s.Stats.TotalSchemas++
		case ContentDefinition:
			s.Stats.TotalDefinitions++
		}
	}
	sortTransactions(s.Transactions)
	sortDIDs(s.DIDs)
	sortResources(s.Resources)

	ix.publish(s)
	glog.V(3).Infof("ledger at %d: %d DIDs, %d resources",
		s.Health.BlockHeight, len(s.DIDs), len(s.Resources))
	return s, nil
}

func (ix *Indexer) cacheTime(height int64, t time.Time) {
	ix.lk.Lock()
	defer ix.lk.Unlock()
	ix.times[height] = t
}

func (ix *Indexer) cachedTime(height int64) (time.Time, bool) {
	ix.lk.RLock()
	defer ix.lk.RUnlock()
	t, ok := ix.times[height]
	return t, ok
}

// timestamp is the tx's own timestamp, else its block's time, else an
// estimate from the latest block and BlockTime.
func (ix *Indexer) timestamp(ctx context.Context, tx rpc.Tx, latest rpc.SyncInfo) time.Time {
	if tx.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339Nano, tx.Timestamp); err == nil {
			return t
		}
	}
	h := int64(tx.Height)
	if t, ok := ix.cachedTime(h); ok {
		return t
	}
	if b, err := ix.rpc.Block(ctx, h); err == nil && !b.Block.Header.Time.IsZero() {
		ix.cacheTime(h, b.Block.Header.Time)
		return b.Block.Header.Time
	}
	return EstimateTime(latest, h)
}

// EstimateTime estimates the time of block height from the latest block.
func EstimateTime(latest rpc.SyncInfo, height int64) time.Time {
	diff := int64(latest.LatestBlockHeight) - height
	return latest.LatestBlockTime.Add(-time.Duration(diff) * BlockTime)
}
