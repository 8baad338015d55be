package compositor

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// Batch reports one dispatch.
type Batch struct {
	Sub        int
	Movements  int
	Properties int
	Animations int

	// Rejected holds the errors of transactions the host refused.
	Rejected []error
	// Futures resolve as the host accepts or rejects each animation.
	Futures []*Future

	stats dispatchStats
}

// Wait blocks until every animation in the batch has been accepted or
// rejected. It returns the first rejection, or ctx's error.
func (b *Batch) Wait(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, f := range b.Futures {
		g.Go(func() error {
			_, err := f.Wait(ctx)
			return err
		})
	}
	return g.Wait()
}

// DispatchCompositorTransactions applies txs to h as one host batch, in
// phase order: sub-transactions, movements in enqueue order, coalesced
// properties, then animations. Must be called on the host context.
//
// Within the property phase nodes are visited in creation order and names
// in lexical order.
func DispatchCompositorTransactions(h Host, txs *Transactions) *Batch {
	b := &Batch{}
	if txs == nil {
		return b
	}
	h.Batch(func() {
		start := time.Now()
		for _, tx := range txs.Sub {
			b.reject(tx.Process(h))
		}
		b.Sub = len(txs.Sub)
		b.stats.subTime = time.Since(start)

		start = time.Now()
		for _, tx := range txs.Movements {
			b.reject(tx.Process(h))
		}
		b.Movements = len(txs.Movements)
		b.stats.movementTime = time.Since(start)

		start = time.Now()
		nodes := make([]*DisplayNode, 0, len(txs.Properties))
		for n := range txs.Properties {
			nodes = append(nodes, n)
		}
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].RefID() < nodes[j].RefID() })
		for _, n := range nodes {
			props := txs.Properties[n]
			names := make([]string, 0, len(props))
			for name := range props {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				b.reject(props[name].Process(h))
				b.Properties++
			}
		}
		b.stats.propertyTime = time.Since(start)

		start = time.Now()
		for _, tx := range txs.Animations {
			b.Futures = append(b.Futures, tx.Process(h))
		}
		b.Animations = len(txs.Animations)
		b.stats.animateTime = time.Since(start)
	})
	b.stats.sub = b.Sub
	b.stats.movements = b.Movements
	b.stats.properties = b.Properties
	b.stats.animations = b.Animations
	b.stats.rejected = len(b.Rejected)
	return b
}

func (b *Batch) reject(err error) {
	if err != nil {
		b.Rejected = append(b.Rejected, err)
	}
}
