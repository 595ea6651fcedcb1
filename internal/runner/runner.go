package runner

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"autoapply/internal/applog"
	"autoapply/internal/company"
	"autoapply/internal/config"
)

// Mode selects which delivery channels a run uses.
type Mode string

const (
	ModeEmail Mode = "email"
	ModeForm  Mode = "form"
	ModeBoth  Mode = "both"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeEmail, ModeForm, ModeBoth:
		return Mode(s), nil
	}
	return "", fmt.Errorf("invalid mode %q (want email, form or both)", s)
}

func (m Mode) email() bool { return m == ModeEmail || m == ModeBoth }
func (m Mode) form() bool  { return m == ModeForm || m == ModeBoth }

// EmailSender delivers one application email for a record.
type EmailSender interface {
	Send(rec company.Record) error
}

// FormSubmitter fills and submits one application form for a record,
// returning the composite outcome string.
type FormSubmitter interface {
	Submit(rec company.Record) (string, error)
}

// Log receives one entry per attempted channel.
type Log interface {
	Append(e applog.Entry) error
}

// Runner walks the company records in order and dispatches each one
// to the enabled channels. Strictly sequential: one mail send, one
// browser session, one log append at a time.
type Runner struct {
	cfg   config.Config
	email EmailSender
	forms FormSubmitter
	book  Log
	log   *zap.Logger

	now   func() time.Time
	sleep func(d time.Duration)
}

func New(cfg config.Config, email EmailSender, forms FormSubmitter, book Log, log *zap.Logger) *Runner {
	return &Runner{
		cfg:   cfg,
		email: email,
		forms: forms,
		book:  book,
		log:   log,
		now:   time.Now,
		sleep: time.Sleep,
	}
}

// Run processes up to limit records (all of them when limit <= 0).
// A single record's failure never stops the run; only the limit cutoff
// ends it early.
func (r *Runner) Run(records []company.Record, mode Mode, dryRun bool, limit int) {
	count := 0
	formsSubmitted := 0
	for _, rec := range records {
		if rec.Company == "" {
			continue
		}
		if rec.ContactEmail == "" && rec.ApplyURL == "" {
			fmt.Printf("[!] Skipping %s: no contact_email or apply_url\n", rec.Company)
			r.log.Warn("skipping company", zap.String("company", rec.Company))
			continue
		}

		r.process(rec, mode, dryRun, &formsSubmitted)
		count++
		if limit > 0 && count >= limit {
			break
		}
		r.delay()
	}
}

func (r *Runner) process(rec company.Record, mode Mode, dryRun bool, formsSubmitted *int) {
	ts := r.now()

	if mode.email() && rec.ContactEmail != "" {
		entry := applog.Entry{
			Timestamp: ts,
			Company:   rec.Company,
			Channel:   applog.ChannelEmail,
			Target:    rec.ContactEmail,
		}
		switch {
		case dryRun:
			entry.Status = applog.StatusDryRun
		default:
			if err := r.email.Send(rec); err != nil {
				entry.Status = applog.StatusError
				entry.Details = err.Error()
			} else {
				entry.Status = applog.StatusSent
			}
		}
		r.append(entry)
		if entry.Status == applog.StatusError {
			fmt.Printf("[x] Email failed for %s: %s\n", rec.Company, entry.Details)
		} else {
			fmt.Printf("[✓] Email -> %s <%s> [%s]\n", rec.Company, rec.ContactEmail, entry.Status)
		}
	}

	if mode.form() && rec.ApplyURL != "" && r.cfg.Forms.Enabled {
		if max := r.cfg.Forms.MaxPerRun; max > 0 && !dryRun && *formsSubmitted >= max {
			fmt.Printf("[!] Skipping form for %s: max_per_run (%d) reached\n", rec.Company, max)
			return
		}

		entry := applog.Entry{
			Timestamp: ts,
			Company:   rec.Company,
			Channel:   applog.ChannelForm,
			Target:    rec.ApplyURL,
		}
		switch {
		case dryRun:
			entry.Status = applog.StatusDryRun
		default:
			details, err := r.forms.Submit(rec)
			if err != nil {
				entry.Status = applog.StatusError
				entry.Details = err.Error()
			} else {
				*formsSubmitted++
				entry.Details = details
				if strings.HasPrefix(details, "success") || strings.HasPrefix(details, "submitted") {
					entry.Status = applog.StatusOK
				} else {
					entry.Status = applog.StatusCheck
				}
			}
		}
		r.append(entry)
		if entry.Status == applog.StatusError {
			fmt.Printf("[x] Form failed for %s: %s\n", rec.Company, entry.Details)
		} else {
			fmt.Printf("[✓] Form -> %s [%s] %s\n", rec.Company, entry.Status, entry.Details)
		}
	}
}

func (r *Runner) append(e applog.Entry) {
	if err := r.book.Append(e); err != nil {
		r.log.Error("log append failed", zap.String("company", e.Company), zap.Error(err))
	}
}

// delay pauses a uniformly random duration between the configured
// min/max seconds before the next record.
func (r *Runner) delay() {
	min := r.cfg.Forms.MinDelayS
	max := r.cfg.Forms.MaxDelayS
	if max < min {
		max = min
	}
	d := min + rand.Float64()*(max-min)
	fmt.Printf("[i] Delay %.1fs to be polite...\n", d)
	r.sleep(time.Duration(d * float64(time.Second)))
}
