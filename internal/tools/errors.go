package tools

import "fmt"

// InvalidAddressError means the wallet address failed the 0x + 40-hex shape
// check. It is raised before any network call is made.
type InvalidAddressError struct {
	Address string
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid wallet address %q: expected 0x followed by 40 hex characters", e.Address)
}

// QuoteError wraps a transport failure or malformed response from the
// swap-quote provider.
type QuoteError struct {
	Err error
}

func (e *QuoteError) Error() string {
	return fmt.Sprintf("swap quote failed: %v", e.Err)
}

func (e *QuoteError) Unwrap() error { return e.Err }
