package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "An open weather station. Measures wind.", StripHTML("<p>An <b>open</b> weather station.</p><p>Measures wind.</p>"))
	assert.Equal(t, "plain text", StripHTML("  plain \n text "))
	assert.Equal(t, "", StripHTML("   "))
}

func TestTitleName(t *testing.T) {
	assert.Equal(t, "FrontPanelV2", TitleName("front panel-v2"))
	assert.Equal(t, "MainBoard", TitleName("main_board"))
}

func TestStemNormalization(t *testing.T) {
	assert.Equal(t, "CODE_OF_CONDUCT", NormalizeStem("code-of conduct"))
	assert.Equal(t, "USERMANUAL", CompactStem("User_Manual"))
}

func TestFileSlug(t *testing.T) {
	assert.Equal(t, "certification-oshwa-org-acme-us000001", FileSlug("certification.oshwa.org/Acme/US000001"))
	assert.Equal(t, "project", FileSlug("///"))
}
