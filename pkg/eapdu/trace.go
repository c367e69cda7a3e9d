package eapdu

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// TRANSACTION:
// A Transaction is one logical exchange: every request fragment sent for a
// command and every response fragment received for it. A single request can
// span several packets in each direction.
//
// TRACE:
// A Trace is the chronological sequence of Transactions performed over one
// connection. IsSuccess evaluates the final exchange only.

// Transaction represents a completed request/response exchange.
type Transaction struct {
	Command   Command
	RequestID uint16
	Sent      [][]byte
	Received  [][]byte
	Response  *Response
}

// IsSuccess checks if the transaction ended with a successful status.
// It returns false if the response is missing.
func (t *Transaction) IsSuccess() bool {
	if t.Response == nil {
		return false
	}
	return t.Response.IsSuccess()
}

// Describe generates a packet-level report of the transaction.
func (t *Transaction) Describe() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("=== %s (request %d) ===\n", t.Command.Verbose(), t.RequestID))
	for i, p := range t.Sent {
		sb.WriteString(fmt.Sprintf("    > [%d/%d] %s\n", i+1, len(t.Sent), hex.EncodeToString(p)))
	}
	for i, p := range t.Received {
		sb.WriteString(fmt.Sprintf("    < [%d] %s\n", i+1, hex.EncodeToString(p)))
	}
	if t.Response == nil {
		sb.WriteString("    + No response")
	} else {
		sb.WriteString("    + " + t.Response.String())
	}
	return sb.String()
}

// Trace is a sequence of transactions.
type Trace []Transaction

// Last returns the final transaction of the trace.
// Returns nil if the trace is empty.
func (t Trace) Last() *Transaction {
	if len(t) == 0 {
		return nil
	}
	return &t[len(t)-1]
}

// IsSuccess checks if the final transaction in the trace was successful.
func (t Trace) IsSuccess() bool {
	last := t.Last()
	if last == nil {
		return false
	}
	return last.IsSuccess()
}
