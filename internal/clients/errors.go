package clients

import (
	"fmt"
	"strings"

	"webtlo/internal/services"
)

// ErrUnsupported reports a control operation the vendor does not offer.
var ErrUnsupported = fmt.Errorf("%w: operation not supported by client", services.ErrAdapter)

// Error describes a failed call against a torrent client.
type Error struct {
	Vendor      string
	Operation   string
	Category    string
	Code        int
	Description string
	Err         error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Vendor)
	if e.Operation != "" {
		b.WriteString(": ")
		b.WriteString(e.Operation)
	}
	if e.Code != 0 {
		fmt.Fprintf(&b, ": code %d", e.Code)
	}
	if e.Description != "" {
		b.WriteString(": ")
		b.WriteString(e.Description)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the adapter marker and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{services.ErrAdapter}
	}
	return []error{services.ErrAdapter, e.Err}
}
