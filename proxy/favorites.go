package proxy

import (
	"context"
	"errors"

	"github.com/yllada/nwam-agent/common"
	"github.com/yllada/nwam-agent/nwam"
)

// MergeResult counts what a favorites merge did.
type MergeResult struct {
	Added     int
	Removed   int
	Refreshed int
	Failed    int
}

// MergeFavorites makes the favorites list match want. Entries only in the
// current list are deleted on the daemon and dropped locally once that
// succeeds; entries only in want are created on the daemon and kept once
// that succeeds. Entries in both keep their local object: pending edits,
// including a changed priority, are committed and the entry refreshed.
// The first daemon error is returned after the whole list is processed.
func (p *Proxy) MergeFavorites(ctx context.Context, want []*nwam.WifiNetwork) (MergeResult, error) {
	var res MergeResult
	var err error
	p.serialize(func() {
		res, err = p.mergeFavorites(ctx, want)
	})
	return res, err
}

// ImportFavorites merges a list without talking to the daemon. Additions
// are kept locally and uncommitted.
func (p *Proxy) ImportFavorites(ctx context.Context, want []*nwam.WifiNetwork) (MergeResult, error) {
	var res MergeResult
	var err error
	p.serialize(func() {
		p.suppress = true
		defer func() { p.suppress = false }()
		res, err = p.mergeFavorites(ctx, want)
	})
	return res, err
}

func (p *Proxy) mergeFavorites(ctx context.Context, want []*nwam.WifiNetwork) (MergeResult, error) {
	var res MergeResult
	var firstErr error
	fail := func(err error) {
		res.Failed++
		if firstErr == nil {
			firstErr = err
		}
	}

	wanted := make(map[string]*nwam.WifiNetwork, len(want))
	var order []string
	for _, w := range want {
		if w == nil || w.ESSID() == "" {
			continue
		}
		if _, dup := wanted[w.ESSID()]; !dup {
			order = append(order, w.ESSID())
		}
		wanted[w.ESSID()] = w
	}

	// removed = old - same
	for _, cur := range p.favorites.List() {
		if _, keep := wanted[cur.ESSID()]; keep {
			continue
		}
		if !p.suppress && cur.Committed() {
			if err := cur.Destroy(ctx, p.client); err != nil {
				p.log.Warn("delete favorite %q: %v", cur.ESSID(), err)
				fail(err)
				continue
			}
		}
		p.favorites.Remove(cur.ESSID())
		res.Removed++
	}

	for _, essid := range order {
		w := wanted[essid]
		cur, same := p.favorites.Find(essid)

		if !same {
			// added = new - same
			if !p.suppress {
				if err := p.createFavorite(ctx, w); err != nil {
					p.log.Warn("create favorite %q: %v", essid, err)
					fail(err)
					continue
				}
			}
			p.favorites.Add(w)
			res.Added++
			continue
		}

		if w != cur && w.Priority() != cur.Priority() {
			cur.SetPriority(w.Priority())
		}
		if p.suppress || !cur.Committed() {
			continue
		}
		if cur.Modified() {
			if err := cur.Commit(ctx, p.client); err != nil {
				p.log.Warn("commit favorite %q: %v", essid, err)
				fail(err)
				continue
			}
		}
		changed, err := cur.Reload(ctx, p.client)
		if err != nil {
			if errors.Is(err, common.ErrObjectNotFound) {
				p.favorites.Remove(essid)
			}
			fail(err)
			continue
		}
		p.emitChanged(cur, changed)
		res.Refreshed++
	}

	p.sortFavorites()
	return res, firstErr
}

func (p *Proxy) createFavorite(ctx context.Context, w *nwam.WifiNetwork) error {
	if _, err := p.client.Create(ctx, w.Kind(), "", w.ESSID()); err != nil {
		return err
	}
	return w.Commit(ctx, p.client)
}
