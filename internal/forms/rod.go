package forms

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"autoapply/internal/config"
)

// Selectors and consent buttons either match quickly or not at all.
const matchTimeout = 2 * time.Second

// clickable is the element pool searched by "text=" selectors.
const clickable = "button, input[type='submit'], a, [role='button']"

// rodSession owns one browser and one page, scoped to a single
// record's form submission.
type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	timeout  time.Duration
	log      *zap.Logger
}

func newRodSession(cfg config.Forms, log *zap.Logger) (*rodSession, error) {
	l := launcher.New().Headless(cfg.Headless)
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		browser.Close()
		l.Cleanup()
		return nil, fmt.Errorf("open page: %w", err)
	}

	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &rodSession{launcher: l, browser: browser, page: page, timeout: timeout, log: log}, nil
}

func (s *rodSession) navigate(url string) error {
	if err := s.page.Timeout(s.timeout).Navigate(url); err != nil {
		return err
	}
	if err := s.page.Timeout(s.timeout).WaitStable(time.Second); err != nil {
		s.log.Debug("wait stable errored out", zap.Error(err))
	}
	return nil
}

// dismissConsent clicks away cookie banners by button text. Every
// failure is ignored, a banner that is not there is not a problem.
func (s *rodSession) dismissConsent(texts []string) {
	for _, text := range texts {
		el, err := s.page.Timeout(matchTimeout).ElementR(clickable, "/^\\s*"+regexp.QuoteMeta(text)+"\\s*$/i")
		if err != nil {
			continue
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			s.log.Debug("consent click failed", zap.String("text", text), zap.Error(err))
		}
	}
}

// first implements finder. A "text=" prefix switches from CSS matching
// to case-insensitive text matching over clickable elements.
func (s *rodSession) first(sel string) (element, bool) {
	if text, ok := strings.CutPrefix(sel, "text="); ok {
		el, err := s.page.Timeout(matchTimeout).ElementR(clickable, "/"+regexp.QuoteMeta(text)+"/i")
		if err != nil {
			return nil, false
		}
		return rodElement{el: el}, true
	}
	has, el, err := s.page.Has(sel)
	if err != nil || !has {
		return nil, false
	}
	return rodElement{el: el}, true
}

func (s *rodSession) html() (string, error) {
	// Give the page a moment to settle after the submit click.
	if err := s.page.Timeout(5*time.Second).WaitStable(time.Second); err != nil {
		s.log.Debug("wait stable errored out", zap.Error(err))
	}
	return s.page.HTML()
}

func (s *rodSession) close() {
	if err := s.page.Close(); err != nil {
		s.log.Debug("page close failed", zap.Error(err))
	}
	if err := s.browser.Close(); err != nil {
		s.log.Debug("browser close failed", zap.Error(err))
	}
	s.launcher.Cleanup()
}

type rodElement struct {
	el *rod.Element
}

func (e rodElement) fill(v string) error {
	if err := e.el.Timeout(matchTimeout).ScrollIntoView(); err != nil {
		return err
	}
	return e.el.Timeout(matchTimeout).Input(v)
}

func (e rodElement) setFiles(path string) error {
	return e.el.Timeout(matchTimeout).SetFiles([]string{path})
}

func (e rodElement) click() error {
	if err := e.el.Timeout(matchTimeout).ScrollIntoView(); err != nil {
		return err
	}
	return e.el.Timeout(matchTimeout).Click(proto.InputMouseButtonLeft, 1)
}
