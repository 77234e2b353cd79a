package resolver

import (
	"context"

	"github.com/justapithecus/strata/graph"
	"github.com/justapithecus/strata/types"
)

// node is one (asset key, partition) pair. Partition is "" for unpartitioned
// assets and for partitioned assets queried without a partition.
type node struct {
	key       types.AssetKey
	partition string
}

func (n node) String() string {
	if n.partition == "" {
		return n.key.String()
	}
	return n.key.String() + "[" + n.partition + "]"
}

type frame struct {
	n    node
	deps []node
	next int
}

// walker evaluates nodes upstream-first with an explicit stack.
type walker struct {
	// done reports whether a node is already evaluated.
	done func(node) bool
	// expand returns the upstream nodes that must be evaluated before n.
	expand func(context.Context, node) ([]node, error)
	// finish evaluates n once all its upstream nodes are done.
	finish func(node) error
}

// run evaluates start and everything it transitively needs. A node that is
// reached again while still on the stack is a cycle and fails with graph.ErrCycle.
func (w walker) run(ctx context.Context, start node) error {
	if w.done(start) {
		return nil
	}

	deps, err := w.expand(ctx, start)
	if err != nil {
		return err
	}
	onStack := map[node]int{start: 0}
	stack := []*frame{{n: start, deps: deps}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next < len(top.deps) {
			d := top.deps[top.next]
			top.next++
			if w.done(d) {
				continue
			}
			if at, ok := onStack[d]; ok {
				return graph.CycleError(cyclePath(stack[at:], d))
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			deps, err := w.expand(ctx, d)
			if err != nil {
				return err
			}
			onStack[d] = len(stack)
			stack = append(stack, &frame{n: d, deps: deps})
			continue
		}

		if err := w.finish(top.n); err != nil {
			return err
		}
		delete(onStack, top.n)
		stack = stack[:len(stack)-1]
	}
	return nil
}

// cyclePath renders the stack from the repeated node back to itself in
// upstream order.
func cyclePath(frames []*frame, closing node) []string {
	path := make([]string, 0, len(frames)+1)
	for i := len(frames) - 1; i >= 0; i-- {
		path = append(path, frames[i].n.String())
	}
	return append([]string{closing.String()}, path...)
}
