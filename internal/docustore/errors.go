package docustore

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected means a mutating call was attempted without an active
	// wallet session.
	ErrNotConnected = errors.New("docustore: wallet not connected")

	// ErrQueryUnavailable means no read client is configured.
	ErrQueryUnavailable = errors.New("docustore: query client not available")

	// ErrMissingDocumentID means the store accepted a write but emitted no
	// document id event. The synthesized fallback id is carried in the error
	// for investigation; it is not a usable success.
	ErrMissingDocumentID = errors.New("docustore: store emitted no document id")
)

// TxError is a remote mutation rejected by the contract. Code is the non-zero
// transaction status; RawLog carries the diagnostic.
type TxError struct {
	Code   uint32
	RawLog string
}

func (e *TxError) Error() string {
	return fmt.Sprintf("docustore: transaction failed (code %d): %s", e.Code, e.RawLog)
}
