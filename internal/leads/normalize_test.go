package leads

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLinkedinURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"https://www.linkedin.com/in/jane-doe/", "https://www.linkedin.com/in/jane-doe"},
		{"HTTPS://WWW.LinkedIn.com/in/jane-doe?trk=abc#top", "https://www.linkedin.com/in/jane-doe"},
		{"linkedin.com/in/jane-doe", "https://linkedin.com/in/jane-doe"},
		{"  https://linkedin.com/in/jane  ", "https://linkedin.com/in/jane"},
		{"http://de.linkedin.com/in/jane/", "http://de.linkedin.com/in/jane"},
		{"N/A", ""},
		{"-", ""},
		{"n/a", ""},
		{"https://example.com/in/jane", ""},
		{"https://notlinkedin.com/in/jane", ""},
		{"https://linkedin.com.evil.io/in/jane", ""},
		{"ftp://linkedin.com/in/jane", ""},
		{"https://%zz", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeLinkedinURL(tt.in))
		})
	}
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Jane Doe", CleanText("  Jane  Doe \n"))
	assert.Equal(t, "", CleanText(" \t "))
}

func TestNormalizeEmailAndPhone(t *testing.T) {
	assert.Equal(t, "jane@acme.io", NormalizeEmail(" Jane@ACME.io "))
	assert.Equal(t, "+1 555 0100", NormalizePhone(" +1  555   0100 "))
}
