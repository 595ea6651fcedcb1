package mail

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"autoapply/internal/company"
	"autoapply/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Identity.FirstName = "Jean"
	cfg.Identity.LastName = "Martin"
	cfg.Identity.Email = "jean@martin.test"
	cfg.Identity.Phone = "+33 6 11 22 33 44"
	cfg.Email.Username = "jean@martin.test"
	cfg.Email.FromName = "Jean Martin"
	// Attachments under test are created explicitly per test case.
	cfg.Files = map[string]string{}
	cfg.Email.Attachments = nil
	return cfg
}

func record() company.Record {
	return company.Record{
		Company:      "Acme",
		ContactEmail: "hr@acme.test",
		ContactName:  "Mme Dupont",
		IntroNote:    "widgets",
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	cfg := testConfig(t)

	a, err := Build(cfg, record(), zap.NewNop())
	require.NoError(t, err)
	b, err := Build(cfg, record(), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestBuildSubstitutesPlaceholders(t *testing.T) {
	cfg := testConfig(t)
	cfg.Email.Subject = "Candidature stage — {company}"
	cfg.Email.BodyTemplate = "Hello {contact_name_or_team}, re {intro_note}. -- {first_name} {last_name}"

	msg, err := Build(cfg, record(), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "Candidature stage — Acme", msg.Subject)
	assert.Equal(t, "Hello Mme Dupont, re widgets. -- Jean Martin", msg.Body)
	assert.Equal(t, "Jean Martin <jean@martin.test>", msg.From)
	assert.Equal(t, "hr@acme.test", msg.To)
}

func TestBuildFallbacks(t *testing.T) {
	cfg := testConfig(t)
	cfg.Email.BodyTemplate = "Hello {contact_name_or_team}, re {intro_note}."

	rec := record()
	rec.ContactName = ""
	rec.IntroNote = ""

	msg, err := Build(cfg, rec, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "Hello l'équipe RH, re mon projet actuel.", msg.Body)
}

func TestBuildFromNameFallsBackToIdentity(t *testing.T) {
	cfg := testConfig(t)
	cfg.Email.FromName = ""

	msg, err := Build(cfg, record(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "Jean Martin <jean@martin.test>", msg.From)
}

func TestBuildSkipsMissingAttachment(t *testing.T) {
	dir := t.TempDir()
	cvPath := filepath.Join(dir, "cv.pdf")
	require.NoError(t, os.WriteFile(cvPath, []byte("%PDF-1.4 fake"), 0o644))

	cfg := testConfig(t)
	cfg.Files = map[string]string{
		"cv":           cvPath,
		"cover_letter": filepath.Join(dir, "nope.pdf"),
	}
	cfg.Email.Attachments = []string{"cv", "cover_letter", "flyer"}

	msg, err := Build(cfg, record(), zap.NewNop())
	require.NoError(t, err, "missing attachments are skipped, not fatal")

	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "cv.pdf", msg.Attachments[0].Filename)
	assert.Equal(t, []byte("%PDF-1.4 fake"), msg.Attachments[0].Data)
}

func TestBuildRequiresContactEmail(t *testing.T) {
	rec := record()
	rec.ContactEmail = ""

	_, err := Build(testConfig(t), rec, zap.NewNop())
	require.Error(t, err)
}

func TestEncode(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	cvPath := filepath.Join(dir, "cv.pdf")
	require.NoError(t, os.WriteFile(cvPath, []byte("attachment bytes"), 0o644))
	cfg.Files = map[string]string{"cv": cvPath}
	cfg.Email.Attachments = []string{"cv"}

	msg, err := Build(cfg, record(), zap.NewNop())
	require.NoError(t, err)

	raw, err := msg.Encode()
	require.NoError(t, err)

	s := string(raw)
	assert.Contains(t, s, "From: Jean Martin <jean@martin.test>")
	assert.Contains(t, s, "To: hr@acme.test")
	assert.Contains(t, s, "Content-Type: multipart/mixed")
	assert.Contains(t, s, `Content-Disposition: attachment; filename="cv.pdf"`)
}
