package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/vrpipe/vrpipe/internal/config"
	"github.com/vrpipe/vrpipe/internal/pipeline"
)

// SMTPNotifier emails run outcomes. The send itself runs synchronously; the
// caller treats any returned error as non-fatal.
type SMTPNotifier struct {
	cfg    config.NotifyConfig
	logger *slog.Logger

	// send is swappable for tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPNotifier(cfg config.NotifyConfig, logger *slog.Logger) *SMTPNotifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SMTPNotifier{cfg: cfg, logger: logger, send: smtp.SendMail}
}

var _ pipeline.Notifier = (*SMTPNotifier)(nil)

func (n *SMTPNotifier) NotifySuccess(ctx context.Context, res *pipeline.Result) error {
	subject := fmt.Sprintf("vrpipe: run %s completed (%d records)", shortID(res.RunID), res.Records)
	body := fmt.Sprintf(
		"Run %s finished.\r\n\r\nRecords: %d\r\nWarnings: %d\r\nArtifact: %s\r\n",
		res.RunID, res.Records, len(res.Warnings), res.Artifact)
	return n.mail(ctx, subject, body)
}

func (n *SMTPNotifier) NotifyFailure(ctx context.Context, res *pipeline.Result, runErr error) error {
	subject := fmt.Sprintf("vrpipe: run %s FAILED at %s", shortID(res.RunID), res.Stage)
	body := fmt.Sprintf(
		"Run %s failed.\r\n\r\nStage: %s\r\nError: %v\r\nWarnings: %d\r\n",
		res.RunID, res.Stage, runErr, len(res.Warnings))
	return n.mail(ctx, subject, body)
}

func (n *SMTPNotifier) mail(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.cfg.Host == "" || len(n.cfg.Recipients) == 0 {
		return fmt.Errorf("smtp notifier not fully configured")
	}

	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	var auth smtp.Auth
	if n.cfg.Password != "" {
		auth = smtp.PlainAuth("", n.cfg.From, n.cfg.Password, n.cfg.Host)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(n.cfg.Recipients, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	if err := n.send(addr, auth, n.cfg.From, n.cfg.Recipients, []byte(msg.String())); err != nil {
		return fmt.Errorf("sending mail via %s: %w", addr, err)
	}
	n.logger.Debug("notification sent", "recipients", len(n.cfg.Recipients), "subject", subject)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
