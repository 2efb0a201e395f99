// Package dispatch sends drafted outreach emails, one message per lead.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/outreach-agent/internal/logging"
	"github.com/jonathan/outreach-agent/internal/types"
)

// Target decides who receives each message.
type Target string

const (
	// TargetPerLead sends to the address found for each lead.
	TargetPerLead Target = "per-lead-address"
	// TargetFixedTest sends every message to one test address.
	TargetFixedTest Target = "fixed-test-address"
)

// TestSubjectPrefix marks subjects sent in fixed-test mode.
const TestSubjectPrefix = "[TEST] "

var (
	// ErrMissingCredentials blocks a batch before any message is attempted.
	ErrMissingCredentials = errors.New("sender email and app password are required")
	// ErrNoRecipient means a lead has no address to send to.
	ErrNoRecipient = errors.New("lead has no recipient address")
)

// ParseTarget parses a target name; "" is the default.
func ParseTarget(s string) (Target, error) {
	switch Target(s) {
	case "", TargetPerLead:
		return TargetPerLead, nil
	case TargetFixedTest:
		return TargetFixedTest, nil
	}
	return "", fmt.Errorf("unknown dispatch target %q", s)
}

// DispatchError records one failed delivery.
type DispatchError struct {
	LeadID    int64
	Recipient string
	Cause     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch to %s (lead %d) failed: %v", e.Recipient, e.LeadID, e.Cause)
}

func (e *DispatchError) Unwrap() error {
	return e.Cause
}

// Request is one dispatch batch.
type Request struct {
	SenderEmail   string
	AppPassword   string
	Target        Target
	TestRecipient string
}

// Outcome is the per-lead result.
type Outcome struct {
	LeadID    int64  `json:"lead_id"`
	Company   string `json:"company"`
	Recipient string `json:"recipient,omitempty"`
	Sent      bool   `json:"sent"`
	Skipped   bool   `json:"skipped,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Result aggregates a batch.
type Result struct {
	Attempted int       `json:"attempted"`
	Sent      int       `json:"sent"`
	Skipped   int       `json:"skipped"`
	Outcomes  []Outcome `json:"outcomes"`
}

// Failed returns the number of attempted messages that were not confirmed.
func (r *Result) Failed() int {
	return r.Attempted - r.Sent
}

// Dispatcher sends drafted emails through a Transport.
type Dispatcher struct {
	transport Transport
	logger    logging.Logger
	now       func() time.Time
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(transport Transport, logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Dispatcher{transport: transport, logger: logger, now: time.Now}
}

// Dispatch sends one message per lead that has both subject and body, in order.
// A failed send is recorded and the batch continues; nothing is retried. A cancelled
// context stops the batch before the next message.
func (d *Dispatcher) Dispatch(ctx context.Context, leads []types.Lead, req Request) (*Result, error) {
	if strings.TrimSpace(req.SenderEmail) == "" || strings.TrimSpace(req.AppPassword) == "" {
		return nil, ErrMissingCredentials
	}
	if req.Target == "" {
		req.Target = TargetPerLead
	}
	if req.Target == TargetFixedTest && strings.TrimSpace(req.TestRecipient) == "" {
		return nil, fmt.Errorf("%w: fixed-test-address needs a test recipient", ErrNoRecipient)
	}

	creds := Credentials{Username: req.SenderEmail, Password: req.AppPassword}
	result := &Result{Outcomes: make([]Outcome, 0, len(leads))}

	for _, lead := range leads {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		outcome := Outcome{LeadID: lead.ID, Company: lead.Company}
		if !lead.HasDraft() {
			outcome.Skipped = true
			result.Skipped++
			result.Outcomes = append(result.Outcomes, outcome)
			continue
		}

		recipient, subject := d.address(lead, req)
		outcome.Recipient = recipient
		if recipient == "" {
			outcome.Skipped = true
			outcome.Error = ErrNoRecipient.Error()
			result.Skipped++
			result.Outcomes = append(result.Outcomes, outcome)
			d.logger.Warn("[Dispatch] %s has no address, skipped", lead.Company)
			continue
		}

		result.Attempted++
		if err := d.send(ctx, creds, req.SenderEmail, recipient, subject, lead); err != nil {
			derr := &DispatchError{LeadID: lead.ID, Recipient: recipient, Cause: err}
			outcome.Error = derr.Error()
			d.logger.Error("[Dispatch] %v", derr)
		} else {
			outcome.Sent = true
			result.Sent++
			d.logger.Info("[Dispatch] sent to %s (%s)", recipient, lead.Company)
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	d.logger.Info("[Dispatch] %d/%d sent", result.Sent, result.Attempted)
	return result, nil
}

func (d *Dispatcher) address(lead types.Lead, req Request) (recipient, subject string) {
	if req.Target == TargetFixedTest {
		return strings.TrimSpace(req.TestRecipient), TestSubjectPrefix + lead.EmailSubject
	}
	return strings.TrimSpace(lead.Email), lead.EmailSubject
}

func (d *Dispatcher) send(ctx context.Context, creds Credentials, from, to, subject string, lead types.Lead) error {
	msg, err := ComposeMessage(Message{
		From:    from,
		To:      to,
		Subject: subject,
		Body:    lead.EmailBody,
		Date:    d.now(),
	})
	if err != nil {
		return err
	}
	return d.transport.Send(ctx, creds, from, []string{to}, msg)
}
