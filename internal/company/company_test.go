package company

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWritesStarterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companies", "companies.csv")

	records, err := Load(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err, "starter file should have been written")

	require.Len(t, records, 2)
	assert.Equal(t, "Exemple SA", records[0].Company)
	assert.Equal(t, "hr@exemple.fr", records[0].ContactEmail)
	assert.Empty(t, records[0].ApplyURL)
	assert.Equal(t, "Startup XYZ", records[1].Company)
	assert.Equal(t, "https://startup.xyz/jobs/stage-dev", records[1].ApplyURL)
	assert.Empty(t, records[1].ContactEmail)
}

func TestLoadTrimsAndCoerces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companies.csv")
	doc := "company,contact_email,apply_url,contact_name,intro_note\n" +
		"  Acme  , hr@acme.test ,,  ,widgets\n" +
		",,,,\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	records, err := Load(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Acme", records[0].Company)
	assert.Equal(t, "hr@acme.test", records[0].ContactEmail)
	assert.Empty(t, records[0].ContactName)
	assert.Equal(t, "widgets", records[0].IntroNote)

	assert.Empty(t, records[1].Company)
	assert.Empty(t, records[1].ContactEmail)
}

func TestLoadColumnOrderIndependent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companies.csv")
	doc := "intro_note,company,contact_email\nwidgets,Acme,hr@acme.test\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	records, err := Load(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Acme", records[0].Company)
	assert.Equal(t, "widgets", records[0].IntroNote)
	assert.Empty(t, records[0].ApplyURL)
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companies.csv")
	doc := "company,contact_email\n\"broken\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingCompanyColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companies.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,email\nAcme,hr@acme.test\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "company")
}
