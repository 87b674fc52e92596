package domain

// MergeAction tags what reconciliation decided for one incoming record.
type MergeAction string

const (
	// MergeIdentical means the record is already represented; nothing changes.
	MergeIdentical MergeAction = "identical"
	// MergeUpdated means an existing record was replaced in place.
	MergeUpdated MergeAction = "updated"
	// MergeNew means the record is inserted.
	MergeNew MergeAction = "new"
	// MergeSuperseded means a record was dropped: an imported one because
	// authoritative data covers its date and symbol, or an earlier copy of a
	// record repeated later in the same batch.
	MergeSuperseded MergeAction = "superseded"
)

// MergeOutcome is the decision for a single incoming record.
type MergeOutcome struct {
	Action MergeAction
	Record *Transaction
	// Replaces is the identity of the stored record overwritten by an update.
	Replaces string
}

// MergePlan is the full set of ledger mutations for one batch.
type MergePlan struct {
	Outcomes []MergeOutcome
	// Removals are stored imported records deleted by a structural mismatch.
	Removals []*Transaction
	Warnings []Warning
}

// Report summarizes the plan.
func (p *MergePlan) Report() MergeReport {
	r := MergeReport{Warnings: p.Warnings, Removed: len(p.Removals)}
	for _, o := range p.Outcomes {
		switch o.Action {
		case MergeIdentical:
			r.Identical++
		case MergeUpdated:
			r.Updated++
		case MergeNew:
			r.New++
		case MergeSuperseded:
			r.Superseded++
		}
	}
	if r.Warnings == nil {
		r.Warnings = []Warning{}
	}
	return r
}

// HasChanges reports whether applying the plan mutates the ledger.
func (p *MergePlan) HasChanges() bool {
	if len(p.Removals) > 0 {
		return true
	}
	for _, o := range p.Outcomes {
		if o.Action == MergeNew || o.Action == MergeUpdated {
			return true
		}
	}
	return false
}

// MergeReport counts reconciliation outcomes for a batch.
type MergeReport struct {
	Identical  int
	Updated    int
	New        int
	Removed    int
	Superseded int
	Warnings   []Warning
}

