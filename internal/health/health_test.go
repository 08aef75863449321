package health

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"literate-ls/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		Language: []config.Language{
			{Name: "go", LanguageServers: []string{"gopls"}},
			{Name: "cobol", LanguageServers: nil},
			{Name: "markdown", LanguageServers: []string{"marksman"}},
		},
		LanguageServer: map[string]config.LanguageServer{
			"gopls":    {Command: "a-binary-that-almost-certainly-does-not-exist-xyz"},
			"marksman": {Command: "marksman", Args: []string{"server"}},
		},
	}
}

func TestCheck_NoFilterReportsOnlyInstalledServers(t *testing.T) {
	var buf bytes.Buffer
	Check(testConfig(), "", &buf)

	out := buf.String()
	assert.Contains(t, out, "literate-ls health check")
	assert.NotContains(t, out, "gopls (a-binary-that-almost-certainly-does-not-exist-xyz)")
}

func TestCheck_FilterByUnconfiguredLanguageReportsNoServers(t *testing.T) {
	var buf bytes.Buffer
	Check(testConfig(), "cobol", &buf)

	assert.Contains(t, buf.String(), "no language servers configured")
}

func TestCheck_FilterByKnownLanguageListsItsServerChain(t *testing.T) {
	var buf bytes.Buffer
	Check(testConfig(), "go", &buf)

	assert.Contains(t, buf.String(), "language servers:")
	assert.Contains(t, buf.String(), "gopls")
}

func TestCheck_FilterByForbiddenFormatExplainsWhy(t *testing.T) {
	var buf bytes.Buffer
	Check(testConfig(), "markdown", &buf)

	assert.Contains(t, buf.String(), "cannot be a child of itself")
}

func TestList_FlagsForbiddenLanguages(t *testing.T) {
	var buf bytes.Buffer
	List(testConfig(), &buf)

	out := buf.String()
	assert.Contains(t, out, "go -> gopls")
	assert.Contains(t, out, "markdown -> (all language servers forbidden")
}

func TestList_SkipsLanguagesWithNoServersConfigured(t *testing.T) {
	var buf bytes.Buffer
	List(testConfig(), &buf)

	assert.NotContains(t, buf.String(), "cobol ->")
}

func TestUsingLanguages(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, []string{"go"}, usingLanguages(cfg, "gopls"))
	assert.Nil(t, usingLanguages(cfg, "nonexistent"))
}

func TestRelatedServerNames_MatchesByPrefixOrSubstring(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, []string{"marksman"}, relatedServerNames(cfg, "marks"))
	assert.Empty(t, relatedServerNames(cfg, "zzz"))
}

func TestLookPath_UnknownCommandNotFound(t *testing.T) {
	_, ok := lookPath("a-binary-that-almost-certainly-does-not-exist-xyz")
	assert.False(t, ok)
}
