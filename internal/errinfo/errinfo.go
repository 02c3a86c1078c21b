// Package errinfo defines the structured error payloads returned to the
// editor frontend over RPC.
package errinfo

// ErrorInfo is the wire shape for a failed operation.
type ErrorInfo struct {
	ErrorCode string   `json:"error_code"`
	Phase     string   `json:"phase,omitempty"`
	Retryable bool     `json:"retryable"`
	Actions   []string `json:"actions,omitempty"`
	ModelID   string   `json:"model_id,omitempty"`
	Detail    string   `json:"detail,omitempty"`
}

const (
	CodeProviderNotConfigured = "PROVIDER_NOT_CONFIGURED"
	CodeProviderAuthFailed    = "PROVIDER_AUTH_FAILED"
	CodeProviderUnavailable   = "PROVIDER_UNAVAILABLE"
	CodeNetworkUnavailable    = "NETWORK_UNAVAILABLE"
	CodeEgressBlocked         = "EGRESS_BLOCKED_BY_POLICY"
	CodeValidationFailed      = "VALIDATION_FAILED"
	CodeCompileFailed         = "COMPILE_FAILED"
)

const (
	ActionRetry        = "retry"
	ActionOpenSettings = "open_settings"
)

const (
	PhaseAutocomplete = "autocomplete"
	PhaseChat         = "chat"
	PhaseGenerate     = "generate"
	PhaseImprove      = "improve"
	PhaseAgentEdit    = "agent_edit"
	PhaseCompile      = "compile"
	PhaseSettings     = "settings"
)

func ProviderNotConfigured(phase string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeProviderNotConfigured,
		Phase:     phase,
		Retryable: false,
		Actions:   []string{ActionOpenSettings},
	}
}

func ProviderAuthFailed(phase string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeProviderAuthFailed,
		Phase:     phase,
		Retryable: false,
		Actions:   []string{ActionOpenSettings},
	}
}

func ProviderUnavailable(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeProviderUnavailable,
		Phase:     phase,
		Retryable: true,
		Actions:   []string{ActionRetry},
		Detail:    detail,
	}
}

func NetworkUnavailable(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeNetworkUnavailable,
		Phase:     phase,
		Retryable: true,
		Actions:   []string{ActionRetry},
		Detail:    detail,
	}
}

func EgressBlocked(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeEgressBlocked,
		Phase:     phase,
		Retryable: false,
		Detail:    detail,
	}
}

func ValidationFailed(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeValidationFailed,
		Phase:     phase,
		Retryable: false,
		Detail:    detail,
	}
}

func CompileFailed(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeCompileFailed,
		Phase:     phase,
		Retryable: false,
		Detail:    detail,
	}
}
