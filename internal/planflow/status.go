// Package planflow holds the plan workflow rules: status vocabularies,
// the sign-off transition tables, the day-bucket snapshot policy and
// the subgraph copier. It has no persistence concerns.
package planflow

type CountersigningStatus string
type AgreementStatus string
type SignType string
type CountersignType string
type LockType string

const (
	Unsigned                  CountersigningStatus = "UNSIGNED"
	AwaitingCountersign       CountersigningStatus = "AWAITING_COUNTERSIGN"
	AwaitingDoubleCountersign CountersigningStatus = "AWAITING_DOUBLE_COUNTERSIGN"
	Countersigned             CountersigningStatus = "COUNTERSIGNED"
	DoubleCountersigned       CountersigningStatus = "DOUBLE_COUNTERSIGNED"
	SelfSigned                CountersigningStatus = "SELF_SIGNED"
	LockedIncomplete          CountersigningStatus = "LOCKED_INCOMPLETE"
	Rejected                  CountersigningStatus = "REJECTED"
	RolledBack                CountersigningStatus = "ROLLED_BACK"
)

const (
	Draft          AgreementStatus = "DRAFT"
	Agreed         AgreementStatus = "AGREED"
	DoNotAgree     AgreementStatus = "DO_NOT_AGREE"
	CouldNotAnswer AgreementStatus = "COULD_NOT_ANSWER"
)

const (
	SignSelf              SignType = "SELF"
	SignCountersign       SignType = "COUNTERSIGN"
	SignDoubleCountersign SignType = "DOUBLE_COUNTERSIGN"
)

const (
	CountersignApprove       CountersignType = "COUNTERSIGN"
	CountersignDoubleApprove CountersignType = "DOUBLE_COUNTERSIGN"
	CountersignReject        CountersignType = "REJECT"
)

const (
	LockIncomplete LockType = "INCOMPLETE"
)

// signTargets is the closed transition table for the sign operation:
// the requested sign type fully determines the target state.
var signTargets = map[SignType]CountersigningStatus{
	SignSelf:              SelfSigned,
	SignCountersign:       AwaitingCountersign,
	SignDoubleCountersign: AwaitingDoubleCountersign,
}

// countersignTargets maps the requested countersign type to its outcome
// state. The version number never changes on this axis.
var countersignTargets = map[CountersignType]CountersigningStatus{
	CountersignApprove:       Countersigned,
	CountersignDoubleApprove: DoubleCountersigned,
	CountersignReject:        Rejected,
}

// countersignSources are the states a countersign decision may act on.
var countersignSources = map[CountersigningStatus]struct{}{
	AwaitingCountersign:       {},
	AwaitingDoubleCountersign: {},
	LockedIncomplete:          {},
}

var lockTargets = map[LockType]CountersigningStatus{
	LockIncomplete: LockedIncomplete,
}

var agreementValues = map[AgreementStatus]struct{}{
	Agreed:         {},
	DoNotAgree:     {},
	CouldNotAnswer: {},
}

// SignTarget resolves a sign type to its target countersigning state.
func SignTarget(signType SignType) (CountersigningStatus, bool) {
	target, ok := signTargets[signType]
	return target, ok
}

// CanSignFrom reports whether the sign operation may act on the given
// state. Signing is a first submission: it acts on unsigned content or
// resubmits a rejected version.
func CanSignFrom(status CountersigningStatus) bool {
	return status == Unsigned || status == Rejected
}

// CountersignTarget resolves a countersign type to its outcome state.
func CountersignTarget(kind CountersignType) (CountersigningStatus, bool) {
	target, ok := countersignTargets[kind]
	return target, ok
}

// CanCountersignFrom reports whether a countersign decision may act on
// the given state.
func CanCountersignFrom(status CountersigningStatus) bool {
	_, ok := countersignSources[status]
	return ok
}

// LockTarget resolves a lock type to its target state. Locking acts
// regardless of the prior countersigning state.
func LockTarget(lockType LockType) (CountersigningStatus, bool) {
	target, ok := lockTargets[lockType]
	return target, ok
}

// ValidAgreement reports whether the value is a decision a subject can
// record against a draft (DRAFT itself is not a decision).
func ValidAgreement(status AgreementStatus) bool {
	_, ok := agreementValues[status]
	return ok
}
