package contacts

import "github.com/ignite/bulletin-sync/internal/domain"

// Op is the write a reconciliation decided on.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpNoOp   Op = "noop"
)

// Decision is the outcome of reconciling one incoming record.
type Decision struct {
	Op Op
	// Fields is the full record for OpCreate and only the changed fields
	// for OpUpdate. Nil for OpNoOp.
	Fields domain.ContactFields
	// Interested is the normalized opt-in flag. It is reported for every
	// op and never takes part in the diff.
	Interested bool
}

// Reconcile decides the minimal write that brings the directory in line
// with in. existing is the record matched by email, or nil.
func Reconcile(in Incoming, existing *domain.ContactRecord) Decision {
	d := Decision{Interested: NormalizeOptIn(in.OptIn)}

	if existing == nil {
		d.Op = OpCreate
		d.Fields = in.createFields()
		return d
	}

	changed := domain.ContactFields{}
	for _, field := range domain.ComparableFields {
		incoming := in.value(field)
		if NormalizeText(incoming) != NormalizeText(existing.Field(field)) {
			changed[field] = incoming
		}
	}

	if len(changed) == 0 {
		d.Op = OpNoOp
		return d
	}
	d.Op = OpUpdate
	d.Fields = changed
	return d
}
