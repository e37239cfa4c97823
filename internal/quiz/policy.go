package quiz

import "fmt"

// DecisionCode classifies an AccessDecision.
type DecisionCode string

const (
	DecisionAllowed            DecisionCode = "allowed"
	DecisionLimitExceeded      DecisionCode = "limit_exceeded"
	DecisionVerificationFailed DecisionCode = "verification_failed"
)

// AccessDecision is produced fresh for every check and never persisted.
type AccessDecision struct {
	CanAttempt      bool         `json:"canAttempt"`
	Code            DecisionCode `json:"code"`
	Reason          string       `json:"message,omitempty"`
	IsKnownActor    bool         `json:"isLoggedIn"`
	Limit           int          `json:"limit"`
	CurrentAttempts int          `json:"currentAttempts"`
	Unlimited       bool         `json:"unlimited,omitempty"`
}

// Retryable reports whether the denial came from an infrastructure failure.
func (d AccessDecision) Retryable() bool {
	return d.Code == DecisionVerificationFailed
}

// Limits maps each mode to its free-tier attempt allowance.
type Limits map[Mode]int

func (l Limits) Of(mode Mode) int {
	if n, ok := l[mode]; ok && n > 0 {
		return n
	}
	return 0
}

// Policy 免费额度判定，纯函数
type Policy struct {
	limits Limits
}

func NewPolicy(limits Limits) *Policy {
	copied := make(Limits, len(limits))
	for m, n := range limits {
		copied[m] = n
	}
	return &Policy{limits: copied}
}

func (p *Policy) Limits() Limits {
	out := make(Limits, len(p.limits))
	for m, n := range p.limits {
		out[m] = n
	}
	return out
}

func (p *Policy) Decide(tier Tier, mode Mode, currentCount int, known bool) AccessDecision {
	if tier == TierPaid {
		return AccessDecision{
			CanAttempt:      true,
			Code:            DecisionAllowed,
			IsKnownActor:    known,
			CurrentAttempts: currentCount,
			Unlimited:       true,
		}
	}

	limit := p.limits.Of(mode)
	decision := AccessDecision{
		IsKnownActor:    known,
		Limit:           limit,
		CurrentAttempts: currentCount,
	}
	if currentCount < limit {
		decision.CanAttempt = true
		decision.Code = DecisionAllowed
		return decision
	}

	decision.Code = DecisionLimitExceeded
	decision.Reason = limitMessage(limit, mode, known)
	return decision
}

func limitMessage(limit int, mode Mode, known bool) string {
	action := "Sign up for a free account to keep practicing."
	if known {
		action = "Upgrade to premium for unlimited quizzes."
	}
	return fmt.Sprintf("You have reached the limit of %d free %s quizzes. %s", limit, mode, action)
}

// VerificationFailed is returned when the tier or counter could not be read.
func VerificationFailed(known bool) AccessDecision {
	return AccessDecision{
		Code:         DecisionVerificationFailed,
		Reason:       "We could not verify your quiz access right now. Please try again.",
		IsKnownActor: known,
	}
}
