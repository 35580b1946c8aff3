package directory

import (
	"errors"

	"github.com/d60-Lab/fhe-content-hub/internal/payload"
	"github.com/d60-Lab/fhe-content-hub/internal/wallet"
)

var (
	ErrWalletNotConnected   = errors.New("wallet not connected")
	ErrContentNotFound      = errors.New("content not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrReconcileUnsupported = errors.New("store cannot enumerate records")

	// ErrMalformedPayload and ErrUserRejected alias the lower-level sentinels
	// so callers only need this package for errors.Is checks.
	ErrMalformedPayload = payload.ErrMalformed
	ErrUserRejected     = wallet.ErrUserRejected
)

// submitMessage maps a submit failure to the text shown to the user.
func submitMessage(err error) string {
	if wallet.IsUserRejected(err) {
		return "Transaction rejected by user"
	}
	return "Submission failed: " + err.Error()
}
