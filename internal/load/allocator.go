package load

import "github.com/fleximart/fleximart-etl/internal/model"

// allocator hands out surrogate keys for one kind. Keys carried in from
// the source are honored when unique; new keys continue after the
// largest of them, so a key is never handed out twice.
type allocator struct {
	next  int64
	taken map[int64]bool
}

func newAllocator(recs []model.Record) *allocator {
	a := &allocator{next: 1, taken: make(map[int64]bool)}
	for _, r := range recs {
		k := r.Key()
		if k <= 0 {
			continue
		}
		if a.taken[k] {
			// Second claim on a key; the record gets a fresh one.
			r.SetKey(0)
			continue
		}
		a.taken[k] = true
		if k >= a.next {
			a.next = k + 1
		}
	}
	return a
}

func (a *allocator) assign(recs []model.Record) {
	for _, r := range recs {
		if r.Key() > 0 {
			continue
		}
		r.SetKey(a.next)
		a.next++
	}
}
