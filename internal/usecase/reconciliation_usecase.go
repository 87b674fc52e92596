package usecase

import (
	"fmt"
	"sort"

	"github.com/iho/taxledger/internal/domain"
)

// Reconciler decides how an incoming batch merges into the stored ledger.
// It is pure: it never touches storage and the same inputs always give the
// same plan.
type Reconciler struct{}

// NewReconciler creates a new Reconciler.
func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// candidate is an imported record competing for an authoritative match.
type candidate struct {
	txn    *domain.Transaction
	stored bool
	rank   int
}

// group holds the records sharing a date, symbol and category.
type group struct {
	key      string
	stored   []*domain.Transaction
	incoming []*domain.Transaction
}

// Plan computes the merge of batch into existing. existing must contain every
// stored record dated on a batch date plus any stored record whose identity
// appears in the batch. Records in batch must be normalized.
func (r *Reconciler) Plan(existing, batch []*domain.Transaction) *domain.MergePlan {
	plan := &domain.MergePlan{}

	storedByID := make(map[string]*domain.Transaction, len(existing))
	for _, txn := range existing {
		storedByID[txn.Identity()] = txn
	}

	incoming := make([]*domain.Transaction, len(batch))
	copy(incoming, batch)
	sort.SliceStable(incoming, func(i, j int) bool {
		return incoming[i].Date.Before(incoming[j].Date)
	})

	// Collapse repeated identities inside the batch; the last copy wins and
	// every dropped copy is reported.
	seen := make(map[string]int, len(incoming))
	deduped := make([]*domain.Transaction, 0, len(incoming))
	for _, txn := range incoming {
		id := txn.Identity()
		if idx, ok := seen[id]; ok {
			if deduped[idx].SameContent(txn) {
				plan.Outcomes = append(plan.Outcomes, domain.MergeOutcome{Action: domain.MergeIdentical, Record: txn})
				continue
			}
			dropped := deduped[idx]
			plan.Outcomes = append(plan.Outcomes, domain.MergeOutcome{Action: domain.MergeSuperseded, Record: dropped})
			plan.Warnings = append(plan.Warnings, domain.Warning{
				Kind:    domain.WarningConflictingDuplicate,
				Message: fmt.Sprintf("batch holds conflicting copies of %s, keeping the last", id),
				Symbol:  txn.Symbol,
				Date:    txn.Date,
				Refs:    []string{id},
			})
			deduped[idx] = txn
			continue
		}
		seen[id] = len(deduped)
		deduped = append(deduped, txn)
	}

	groups := make(map[string]*group)
	keys := make([]string, 0)
	groupFor := func(key string) *group {
		g, ok := groups[key]
		if !ok {
			g = &group{key: key}
			groups[key] = g
			keys = append(keys, key)
		}
		return g
	}

	for _, txn := range existing {
		g := groupFor(txn.GroupKey())
		g.stored = append(g.stored, txn)
	}
	for _, txn := range deduped {
		g := groupFor(txn.GroupKey())
		g.incoming = append(g.incoming, txn)
	}
	sort.Strings(keys)

	for _, key := range keys {
		g := groups[key]
		if len(g.incoming) == 0 {
			continue
		}
		sort.SliceStable(g.stored, func(i, j int) bool { return g.stored[i].Seq < g.stored[j].Seq })
		r.planGroup(plan, g, storedByID)
	}

	return plan
}

func (r *Reconciler) planGroup(plan *domain.MergePlan, g *group, storedByID map[string]*domain.Transaction) {
	var (
		auth       []*domain.Transaction // final authoritative records of the group
		newAuth    []*domain.Transaction // incoming authoritative records not yet stored
		candidates []*candidate
	)

	for _, s := range g.stored {
		if s.Source == domain.SourceAuthoritative {
			auth = append(auth, s)
		} else {
			candidates = append(candidates, &candidate{txn: s, stored: true, rank: len(candidates)})
		}
	}

	var incomingImported []*domain.Transaction
	for _, n := range g.incoming {
		s, stored := storedByID[n.Identity()]

		if n.Source == domain.SourceImported {
			if stored {
				plan.Outcomes = append(plan.Outcomes, domain.MergeOutcome{Action: domain.MergeIdentical, Record: n})
				continue
			}
			incomingImported = append(incomingImported, n)
			continue
		}

		if !stored {
			newAuth = append(newAuth, n)
			continue
		}
		if s.SameContent(n) {
			plan.Outcomes = append(plan.Outcomes, domain.MergeOutcome{Action: domain.MergeIdentical, Record: n})
		} else {
			refreshed := n.Clone()
			refreshed.Seq = s.Seq
			plan.Outcomes = append(plan.Outcomes, domain.MergeOutcome{
				Action:   domain.MergeUpdated,
				Record:   refreshed,
				Replaces: s.Identity(),
			})
		}
		if s.GroupKey() == g.key {
			// Already listed among the stored records of this group.
			replaceByIdentity(auth, n)
		} else {
			auth = append(auth, n)
		}
	}

	for _, n := range incomingImported {
		candidates = append(candidates, &candidate{txn: n, rank: len(candidates)})
	}

	// No authoritative coverage: imported records stand.
	if len(auth) == 0 && len(newAuth) == 0 {
		for _, n := range incomingImported {
			plan.Outcomes = append(plan.Outcomes, domain.MergeOutcome{Action: domain.MergeNew, Record: n})
		}
		return
	}

	sort.Slice(newAuth, func(i, j int) bool { return newAuth[i].Identity() < newAuth[j].Identity() })
	all := append(append([]*domain.Transaction{}, auth...), newAuth...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Identity() < all[j].Identity() })

	pairs := r.pair(plan, all, candidates)
	allPaired := len(pairs) == len(candidates)

	partnerOf := make(map[*domain.Transaction]*candidate, len(pairs))
	pairedAuth := make(map[*candidate]*domain.Transaction, len(pairs))
	for a, c := range pairs {
		partnerOf[a] = c
		pairedAuth[c] = a
	}

	isNew := make(map[*domain.Transaction]bool, len(newAuth))
	for _, a := range newAuth {
		isNew[a] = true
	}

	// Stored imported records are replaced in place on a clean one-to-one
	// match with a new authoritative record, otherwise removed.
	for _, c := range candidates {
		if !c.stored {
			continue
		}
		if a, ok := pairedAuth[c]; ok && allPaired && isNew[a] {
			continue
		}
		plan.Removals = append(plan.Removals, c.txn)
	}

	for _, a := range newAuth {
		c, ok := partnerOf[a]
		if !ok || !allPaired {
			plan.Outcomes = append(plan.Outcomes, domain.MergeOutcome{Action: domain.MergeNew, Record: a})
			continue
		}
		replaced := a.Clone()
		outcome := domain.MergeOutcome{Action: domain.MergeUpdated, Record: replaced}
		if c.stored {
			replaced.Seq = c.txn.Seq
			outcome.Replaces = c.txn.Identity()
		}
		plan.Outcomes = append(plan.Outcomes, outcome)
	}

	for _, c := range candidates {
		if c.stored {
			continue
		}
		action := domain.MergeSuperseded
		if a, ok := pairedAuth[c]; ok && !isNew[a] {
			action = domain.MergeIdentical
		}
		plan.Outcomes = append(plan.Outcomes, domain.MergeOutcome{Action: action, Record: c.txn})
	}
}

// pair matches authoritative records to imported candidates one-to-one on
// the semantic key. Competing candidates resolve to the earliest imported.
func (r *Reconciler) pair(plan *domain.MergePlan, auth []*domain.Transaction, candidates []*candidate) map[*domain.Transaction]*candidate {
	pairs := make(map[*domain.Transaction]*candidate)
	taken := make(map[*candidate]bool)

	for _, a := range auth {
		key := a.SemanticKey()
		var matches []*candidate
		for _, c := range candidates {
			if !taken[c] && c.txn.SemanticKey() == key {
				matches = append(matches, c)
			}
		}
		if len(matches) == 0 {
			continue
		}

		sort.SliceStable(matches, func(i, j int) bool { return matches[i].rank < matches[j].rank })
		chosen := matches[0]
		taken[chosen] = true
		pairs[a] = chosen

		if len(matches) > 1 {
			refs := make([]string, 0, len(matches)+1)
			refs = append(refs, a.Identity())
			for _, m := range matches {
				refs = append(refs, m.txn.Identity())
			}
			plan.Warnings = append(plan.Warnings, domain.Warning{
				Kind: domain.WarningAmbiguousReconciliation,
				Message: fmt.Sprintf("%d imported records match %s; using earliest imported %s",
					len(matches), a.Identity(), chosen.txn.Identity()),
				Symbol: a.Symbol,
				Date:   a.Date,
				Refs:   refs,
			})
		}
	}

	return pairs
}

func replaceByIdentity(list []*domain.Transaction, txn *domain.Transaction) {
	for i, t := range list {
		if t.Identity() == txn.Identity() {
			list[i] = txn
			return
		}
	}
}
