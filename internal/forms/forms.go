package forms

import (
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"autoapply/internal/company"
	"autoapply/internal/config"
)

// finder looks up the first element matching a selector on the current
// page. Implementations never wait long: a selector either matches now
// or the fallback chain moves on.
type finder interface {
	first(selector string) (element, bool)
}

type element interface {
	fill(value string) error
	setFiles(path string) error
	click() error
}

// Submitter drives a headless browser to fill and submit one
// application form per company record.
type Submitter struct {
	cfg config.Config
	log *zap.Logger
}

func NewSubmitter(cfg config.Config, log *zap.Logger) *Submitter {
	return &Submitter{cfg: cfg, log: log}
}

// Submit opens rec.ApplyURL, best-effort fills the known fields,
// uploads the configured documents, clicks a submit control and scans
// the resulting page for success keywords. Individual step failures
// are skipped, never fatal; only a browser or navigation failure is
// returned as an error.
func (s *Submitter) Submit(rec company.Record) (string, error) {
	session, err := newRodSession(s.cfg.Forms, s.log)
	if err != nil {
		return "", err
	}
	defer session.close()

	if err := session.navigate(rec.ApplyURL); err != nil {
		return "", fmt.Errorf("navigate %s: %w", rec.ApplyURL, err)
	}

	session.dismissConsent(s.cfg.Forms.ConsentTexts)

	o := s.run(session, rec)

	html, err := session.html()
	if err == nil && containsAny(visibleText(html), s.cfg.Forms.SuccessTexts) {
		o.result = "success_detected"
	}
	return o.String(), nil
}

type outcome struct {
	result   string
	cvOK     bool
	letterOK bool
	flyerOK  bool
}

func (o outcome) String() string {
	return fmt.Sprintf("%s; uploads cv=%t, letter=%t, flyer=%t", o.result, o.cvOK, o.letterOK, o.flyerOK)
}

// run fills the fields and clicks submit on an already loaded page.
func (s *Submitter) run(f finder, rec company.Record) outcome {
	ident := s.cfg.Identity
	sel := s.cfg.Forms.Selectors

	s.fill(f, "name", sel.Name, ident.FirstName+" "+ident.LastName)
	s.fill(f, "email", sel.Email, ident.Email)
	s.fill(f, "phone", sel.Phone, ident.Phone)

	body := s.cfg.Forms.MessageTemplate
	if rec.IntroNote != "" {
		body += "\n\nFocus: " + rec.IntroNote
	}
	s.fill(f, "message", sel.Message, body)

	var o outcome
	o.cvOK = s.upload(f, "cv", sel.CVUpload, s.cfg.Files["cv"])
	o.letterOK = s.upload(f, "letter", sel.LetterUpload, s.cfg.Files["cover_letter"])
	o.flyerOK = s.upload(f, "flyer", sel.FlyerUpload, s.cfg.Files["flyer"])

	o.result = "clicked_failed"
	if clickFirst(f, sel.Submit) {
		o.result = "submitted"
	}
	return o
}

func (s *Submitter) fill(f finder, field string, selectors []string, value string) {
	if !fillFirst(f, selectors, value) {
		s.log.Debug("no selector matched, field left unfilled", zap.String("field", field))
	}
}

func (s *Submitter) upload(f finder, field string, selectors []string, path string) bool {
	ok := tryUpload(f, selectors, path)
	if !ok {
		s.log.Debug("upload skipped", zap.String("field", field), zap.String("path", path))
	}
	return ok
}

// fillFirst walks the selector list in order and fills the first
// element that matches and accepts input. Selectors after the first
// success are never attempted.
func fillFirst(f finder, selectors []string, value string) bool {
	for _, sel := range selectors {
		el, ok := f.first(sel)
		if !ok {
			continue
		}
		if err := el.fill(value); err != nil {
			continue
		}
		return true
	}
	return false
}

// tryUpload reports whether the file at path exists and was handed to
// a matching file input.
func tryUpload(f finder, selectors []string, path string) bool {
	if path == "" {
		return false
	}
	if _, err := os.Stat(path); err != nil {
		return false
	}
	for _, sel := range selectors {
		el, ok := f.first(sel)
		if !ok {
			continue
		}
		if err := el.setFiles(path); err != nil {
			continue
		}
		return true
	}
	return false
}

func clickFirst(f finder, selectors []string) bool {
	for _, sel := range selectors {
		el, ok := f.first(sel)
		if !ok {
			continue
		}
		if err := el.click(); err != nil {
			continue
		}
		return true
	}
	return false
}

// visibleText extracts the page's rendered text, dropping script and
// style contents.
func visibleText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find("script, style, noscript").Remove()
	return doc.Text()
}

func containsAny(text string, needles []string) bool {
	text = strings.ToLower(text)
	for _, n := range needles {
		if n != "" && strings.Contains(text, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
