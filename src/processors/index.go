package processors

import "sort"

type candidate struct {
	company  normalizedCompany
	consumed bool
}

// ChequeIndex maps a normalized cheque number to every company record carrying it.
// It owns the consumption state of one reconciliation run and must not be reused.
type ChequeIndex struct {
	byKey map[string][]*candidate
	all   []*candidate
}

// BuildIndex groups company records by key. Duplicates are kept, oldest issue date first,
// ties in upload order.
func BuildIndex(records []normalizedCompany) *ChequeIndex {
	idx := &ChequeIndex{
		byKey: make(map[string][]*candidate, len(records)),
		all:   make([]*candidate, 0, len(records)),
	}
	for _, r := range records {
		c := &candidate{company: r}
		idx.byKey[r.key] = append(idx.byKey[r.key], c)
		idx.all = append(idx.all, c)
	}
	for _, group := range idx.byKey {
		if len(group) < 2 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			a, b := group[i].company, group[j].company
			if !a.record.IssueDate.Equal(b.record.IssueDate) {
				return a.record.IssueDate.Before(b.record.IssueDate)
			}
			return a.position < b.position
		})
	}
	return idx
}

// unconsumed returns company records never matched, in upload order.
func (idx *ChequeIndex) unconsumed() []normalizedCompany {
	var out []normalizedCompany
	for _, c := range idx.all {
		if !c.consumed {
			out = append(out, c.company)
		}
	}
	return out
}

// Len reports how many distinct keys the index holds.
func (idx *ChequeIndex) Len() int { return len(idx.byKey) }
