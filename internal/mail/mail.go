package mail

import (
	"bytes"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"autoapply/internal/company"
	"autoapply/internal/config"
)

// Message is a rendered application email, ready to encode and send.
type Message struct {
	From        string
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

type Attachment struct {
	Filename string
	Data     []byte
}

// Sender renders and sends application emails for company records.
type Sender struct {
	cfg config.Config
	log *zap.Logger
}

func NewSender(cfg config.Config, log *zap.Logger) *Sender {
	return &Sender{cfg: cfg, log: log}
}

// Send renders the message for rec and transmits it.
func (s *Sender) Send(rec company.Record) error {
	msg, err := Build(s.cfg, rec, s.log)
	if err != nil {
		return err
	}
	return Transmit(s.cfg.Email, msg)
}

// Build renders the subject and body templates against rec and loads
// the configured attachments. Rendering is deterministic for a fixed
// config and record. A missing attachment file is logged and skipped,
// never an error.
func Build(cfg config.Config, rec company.Record, log *zap.Logger) (*Message, error) {
	if rec.ContactEmail == "" {
		return nil, fmt.Errorf("company %s has no contact email", rec.Company)
	}
	ident := cfg.Identity
	ec := cfg.Email

	contactNameOrTeam := rec.ContactName
	if contactNameOrTeam == "" {
		contactNameOrTeam = ec.TeamFallback
	}
	introNote := rec.IntroNote
	if introNote == "" {
		introNote = ec.IntroFallback
	}

	rep := strings.NewReplacer(
		"{first_name}", ident.FirstName,
		"{last_name}", ident.LastName,
		"{email}", ident.Email,
		"{phone}", ident.Phone,
		"{city}", ident.City,
		"{portfolio_url}", ident.PortfolioURL,
		"{linkedin_url}", ident.LinkedinURL,
		"{company}", rec.Company,
		"{contact_name}", rec.ContactName,
		"{contact_name_or_team}", contactNameOrTeam,
		"{intro_note}", introNote,
	)

	fromName := ec.FromName
	if fromName == "" {
		fromName = ident.FirstName + " " + ident.LastName
	}

	body := rep.Replace(ec.BodyTemplate)
	if ec.Signature != "" {
		body += "\n" + rep.Replace(ec.Signature)
	}

	msg := &Message{
		From:    fmt.Sprintf("%s <%s>", fromName, ec.Username),
		To:      rec.ContactEmail,
		Subject: rep.Replace(ec.Subject),
		Body:    body,
	}

	for _, key := range ec.Attachments {
		fpath := cfg.Files[key]
		if fpath == "" {
			log.Warn("attachment has no configured file", zap.String("key", key))
			continue
		}
		data, err := os.ReadFile(fpath)
		if err != nil {
			log.Warn("attachment missing, skipping", zap.String("key", key), zap.String("path", fpath))
			continue
		}
		msg.Attachments = append(msg.Attachments, Attachment{Filename: filepath.Base(fpath), Data: data})
	}
	return msg, nil
}

// Encode serializes the message as a multipart/mixed MIME document.
func (m *Message) Encode() ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", m.From)
	fmt.Fprintf(&buf, "To: %s\r\n", m.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mw.Boundary())

	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	if err != nil {
		return nil, fmt.Errorf("encode body part: %w", err)
	}
	if _, err := part.Write([]byte(m.Body)); err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}

	for _, att := range m.Attachments {
		ctype := mime.TypeByExtension(filepath.Ext(att.Filename))
		if ctype == "" {
			ctype = "application/octet-stream"
		}
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {ctype},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", att.Filename)},
		})
		if err != nil {
			return nil, fmt.Errorf("encode attachment %s: %w", att.Filename, err)
		}
		enc := base64.StdEncoding.EncodeToString(att.Data)
		// 76-char lines per RFC 2045.
		for len(enc) > 0 {
			n := min(76, len(enc))
			if _, err := fmt.Fprintf(part, "%s\r\n", enc[:n]); err != nil {
				return nil, fmt.Errorf("encode attachment %s: %w", att.Filename, err)
			}
			enc = enc[n:]
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finish mime document: %w", err)
	}
	return buf.Bytes(), nil
}

// Transmit sends the message over an implicit-TLS SMTP session. Any
// dial, auth or protocol failure is returned to the caller; there are
// no retries.
func Transmit(cfg config.Email, msg *Message) error {
	addr := fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort)
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: cfg.SMTPHost})
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	c, err := smtp.NewClient(conn, cfg.SMTPHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	auth := smtp.PlainAuth("", cfg.Username, cfg.AppPassword, cfg.SMTPHost)
	if err := c.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := c.Mail(cfg.Username); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp rcpt %s: %w", msg.To, err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	raw, err := msg.Encode()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp finish: %w", err)
	}
	return c.Quit()
}
