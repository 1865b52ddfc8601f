package session

import "golang.org/x/sync/errgroup"

// taskGroup tracks background scoring calls so the final evaluation can
// wait for all of them.
type taskGroup struct {
	group errgroup.Group
}

func (g *taskGroup) Go(fn func()) {
	g.group.Go(func() error {
		fn()
		return nil
	})
}

// Wait blocks until every task started so far has returned.
func (g *taskGroup) Wait() {
	_ = g.group.Wait()
}
