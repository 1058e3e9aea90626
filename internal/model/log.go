package model

// Reason classifies why a row was dropped.
type Reason string

const (
	ReasonDuplicate       Reason = "duplicate"
	ReasonMissingRequired Reason = "missing required field"
	ReasonInvalidValue    Reason = "invalid value"
	ReasonUnparseableDate Reason = "unparseable date"
	ReasonOrphaned        Reason = "orphaned reference"
)

// Reasons lists drop reasons in report order.
var Reasons = []Reason{
	ReasonDuplicate, ReasonMissingRequired, ReasonInvalidValue,
	ReasonUnparseableDate, ReasonOrphaned,
}

// Rule names the cleaning rule that modified a value.
type Rule string

const (
	RulePhone    Rule = "phone"
	RuleDate     Rule = "date"
	RuleCategory Rule = "category"
	RuleText     Rule = "text"
	RuleEmail    Rule = "email"
	RuleNumber   Rule = "number"
	RuleStatus   Rule = "status"
	RuleDefault  Rule = "default"
	RuleDerived  Rule = "derived"
)

// Rules lists rules in report order.
var Rules = []Rule{
	RuleText, RuleEmail, RulePhone, RuleDate, RuleCategory,
	RuleNumber, RuleStatus, RuleDefault, RuleDerived,
}

// Change records one value rewritten by a rule.
type Change struct {
	Kind       Kind
	NaturalKey string
	Rule       Rule
	Column     string
	Old        string
	New        string
}

// Drop records one row removed from the run.
type Drop struct {
	Kind       Kind
	NaturalKey string
	Reason     Reason
	Detail     string
}

// Log is the append-only record of what a run did to its rows. The run
// report is derived from it and nothing else.
type Log struct {
	RowsIn  map[Kind]int
	Changes []Change
	Drops   []Drop
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{RowsIn: make(map[Kind]int)}
}

// In adds n to the rows read for kind.
func (l *Log) In(kind Kind, n int) {
	if l.RowsIn == nil {
		l.RowsIn = make(map[Kind]int)
	}
	l.RowsIn[kind] += n
}

func (l *Log) Change(c Change) { l.Changes = append(l.Changes, c) }
func (l *Log) Drop(d Drop)     { l.Drops = append(l.Drops, d) }

// Merge appends the entries of other to l.
func (l *Log) Merge(other *Log) {
	if other == nil {
		return
	}
	for k, n := range other.RowsIn {
		l.In(k, n)
	}
	l.Changes = append(l.Changes, other.Changes...)
	l.Drops = append(l.Drops, other.Drops...)
}
