package guard

// Action is what the guard did to the model's reply.
type Action string

const (
	ActionRedirect Action = "redirect"
	ActionRepair   Action = "repair"
	ActionEnhance  Action = "enhance"

	// ActionPassthrough returns the raw reply unchanged. It is only used
	// when processing failed.
	ActionPassthrough Action = "passthrough"
)

// Reason is why the action was taken.
type Reason string

const (
	ReasonOverride      Reason = "override"
	ReasonTopicRedirect Reason = "topic-redirect"
	ReasonInconsistent  Reason = "inconsistent"
	ReasonGood          Reason = "good"
	ReasonError         Reason = "error"
)

// Decision is the outcome of one exchange.
type Decision struct {
	Action   Action `json:"action"`
	Response string `json:"response"`
	Reason   Reason `json:"reason"`

	// Topic is the redirect topic key, if one matched.
	Topic string `json:"topic,omitempty"`

	// Signals are the threat detector rules that fired.
	Signals []string `json:"signals,omitempty"`

	// Issues are the validator's diagnostics for the raw reply.
	Issues []string `json:"issues,omitempty"`

	// Fallback is set when a repair gave up and answered from the
	// confused templates.
	Fallback bool `json:"fallback,omitempty"`

	// Adapted is set when this exchange triggered an adaptation.
	Adapted bool `json:"adapted,omitempty"`
}
