package firestore

// ConstraintKind tags a Constraint.
type ConstraintKind int

const (
	KindWhere ConstraintKind = iota
	KindOrderBy
	KindLimit
	KindLimitToLast
	KindStartAt
	KindStartAfter
	KindEndAt
	KindEndBefore
)

func (k ConstraintKind) String() string {
	switch k {
	case KindWhere:
		return "where"
	case KindOrderBy:
		return "orderBy"
	case KindLimit:
		return "limit"
	case KindLimitToLast:
		return "limitToLast"
	case KindStartAt:
		return "startAt"
	case KindStartAfter:
		return "startAfter"
	case KindEndAt:
		return "endAt"
	case KindEndBefore:
		return "endBefore"
	default:
		return "unknown"
	}
}

type Direction int

const (
	Asc Direction = iota
	Desc
)

// Constraint is one query clause. Backends apply constraints in order and
// do not interpret them beyond translating to the vendor query builder.
type Constraint struct {
	Kind ConstraintKind

	// Where and OrderBy.
	Field string

	// Where.
	Op    string
	Value any

	// OrderBy.
	Direction Direction

	// Limit and LimitToLast.
	N int

	// Cursors.
	Values []any
}

// Where filters on field with a Firestore operator such as "==", "<",
// "array-contains" or "in".
func Where(field, op string, value any) Constraint {
	return Constraint{Kind: KindWhere, Field: field, Op: op, Value: value}
}

func OrderBy(field string, dir Direction) Constraint {
	return Constraint{Kind: KindOrderBy, Field: field, Direction: dir}
}

func Limit(n int) Constraint {
	return Constraint{Kind: KindLimit, N: n}
}

func LimitToLast(n int) Constraint {
	return Constraint{Kind: KindLimitToLast, N: n}
}

func StartAt(values ...any) Constraint {
	return Constraint{Kind: KindStartAt, Values: values}
}

func StartAfter(values ...any) Constraint {
	return Constraint{Kind: KindStartAfter, Values: values}
}

func EndAt(values ...any) Constraint {
	return Constraint{Kind: KindEndAt, Values: values}
}

func EndBefore(values ...any) Constraint {
	return Constraint{Kind: KindEndBefore, Values: values}
}
