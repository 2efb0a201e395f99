package dispatch

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// Credentials authenticate the sender mailbox.
type Credentials struct {
	Username string
	Password string
}

// Transport delivers one encoded message.
type Transport interface {
	Send(ctx context.Context, creds Credentials, from string, to []string, msg []byte) error
}

// SMTPTransport submits mail over SMTP with STARTTLS and PLAIN auth.
// Each Send uses its own connection.
type SMTPTransport struct {
	Host      string
	Port      int
	TLSConfig *tls.Config
	// Insecure skips STARTTLS. Only for local test servers.
	Insecure bool
}

// NewSMTPTransport creates a transport for host:port.
func NewSMTPTransport(host string, port int) *SMTPTransport {
	return &SMTPTransport{Host: host, Port: port}
}

func (t *SMTPTransport) addr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// Send implements Transport.
func (t *SMTPTransport) Send(ctx context.Context, creds Credentials, from string, to []string, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var (
		c   *smtp.Client
		err error
	)
	if t.Insecure {
		c, err = smtp.Dial(t.addr())
	} else {
		tlsConfig := t.TLSConfig
		if tlsConfig == nil {
			tlsConfig = &tls.Config{ServerName: t.Host, MinVersion: tls.VersionTLS12}
		}
		c, err = smtp.DialStartTLS(t.addr(), tlsConfig)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", t.addr(), err)
	}
	defer func() { _ = c.Close() }()

	if err := c.Auth(sasl.NewPlainClient("", creds.Username, creds.Password)); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	if err := c.SendMail(from, to, bytes.NewReader(msg)); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	return c.Quit()
}
