package flow

import "github.com/nexabank/onboarding/internal/bank"

// Stage is one discrete step of the onboarding flow. Exactly one is active at a time.
type Stage string

const (
	StageLanding        Stage = "LANDING"
	StageLogin          Stage = "LOGIN"
	StageLoginVerify    Stage = "LOGIN_VERIFY"
	StageForm           Stage = "FORM"
	StageApproved       Stage = "APPROVED"
	StagePending        Stage = "PENDING"
	StageDeclined       Stage = "DECLINED"
	StageRegistration   Stage = "REGISTRATION"
	StageRegisterVerify Stage = "REGISTER_VERIFY"
	StageWelcome        Stage = "WELCOME"
	StageDashboard      Stage = "DASHBOARD"
)

// Stages lists every stage in flow order.
var Stages = []Stage{
	StageLanding, StageLogin, StageLoginVerify, StageForm, StageApproved, StagePending,
	StageDeclined, StageRegistration, StageRegisterVerify, StageWelcome, StageDashboard,
}

// StageForStatus maps an application decision to the stage that follows it.
// Matching is case-insensitive; unknown statuses report false.
func StageForStatus(status bank.ApplicationStatus) (Stage, bool) {
	switch status.Normalize() {
	case bank.StatusApproved:
		return StageApproved, true
	case bank.StatusPending:
		return StagePending, true
	case bank.StatusDeclined:
		return StageDeclined, true
	default:
		return "", false
	}
}

// VerifyMode selects which verification path a code applies to.
type VerifyMode string

const (
	ModeRegistration VerifyMode = "registration"
	ModeLogin        VerifyMode = "login"
)

// ModeForStage returns the verification mode served by stage, if any.
func ModeForStage(stage Stage) (VerifyMode, bool) {
	switch stage {
	case StageRegisterVerify:
		return ModeRegistration, true
	case StageLoginVerify:
		return ModeLogin, true
	default:
		return "", false
	}
}
