package swap

import "fmt"

// FailureKind classifies terminal swap failures.
type FailureKind string

const (
	// FailConfigurationMissing: the Safe secrets are absent; the action is
	// not offered at all. A precondition, not a retryable error.
	FailConfigurationMissing FailureKind = "configuration_missing"
	// FailMissingFields: the intent is incomplete; the user can resubmit.
	FailMissingFields FailureKind = "missing_fields"
	// FailUnsupportedChain: the requested chain is outside the fixed set.
	FailUnsupportedChain FailureKind = "unsupported_chain"
	// FailTokenNotFound: a symbol did not resolve on the requested chain.
	FailTokenNotFound FailureKind = "token_not_found"
	// FailNativeAsset: one side of the swap is the chain's native asset,
	// which has no ERC-20 allowance path.
	FailNativeAsset FailureKind = "native_asset_unsupported"
	// FailInvalidAmount: the sell amount cannot be scaled exactly.
	FailInvalidAmount FailureKind = "invalid_amount"
	// FailApprovalReverted: the approval transaction mined but reverted; the
	// swap was never submitted.
	FailApprovalReverted FailureKind = "approval_reverted"
	// FailSwapReverted: the swap transaction mined but reverted.
	FailSwapReverted FailureKind = "swap_reverted"
	// FailTransport: any lower-layer error (RPC, signing, network) not
	// otherwise classified.
	FailTransport FailureKind = "transport_failure"
)

// Failure is a terminal, user-reportable swap error.
type Failure struct {
	Kind    FailureKind
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func failf(kind FailureKind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
