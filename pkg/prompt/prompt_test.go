package prompt

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPassword(t *testing.T) {

	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("s3cret\n"), &out)

	password, err := p.Password("Archive password")
	assert.Nil(t, err)
	assert.Equal(t, []byte("s3cret"), password)
	assert.Contains(t, out.String(), "Archive password")
	assert.NotContains(t, out.String(), "s3cret")
}

func TestPasswordWithoutTrailingNewline(t *testing.T) {
	p := NewPrompter(strings.NewReader("s3cret"), io.Discard)
	password, err := p.Password("Password")
	assert.Nil(t, err)
	assert.Equal(t, []byte("s3cret"), password)
}

func TestPasswordEOF(t *testing.T) {
	p := NewPrompter(strings.NewReader(""), io.Discard)
	_, err := p.Password("Password")
	assert.ErrorIs(t, err, io.EOF)
}

func TestConfirmPassword(t *testing.T) {

	p := NewPrompter(strings.NewReader("pw1\npw1\n"), io.Discard)
	password, matches, err := p.ConfirmPassword("Archive password")
	assert.Nil(t, err)
	assert.True(t, matches)
	assert.Equal(t, []byte("pw1"), password)

	p = NewPrompter(strings.NewReader("pw1\npw2\n"), io.Discard)
	password, matches, err = p.ConfirmPassword("Archive password")
	assert.Nil(t, err)
	assert.False(t, matches)
	assert.Equal(t, []byte("pw1"), password)
}

func TestMessages(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader(""), &out)
	p.PrintBanner("1.0.0")
	p.Success("created %s", "example.pfx")
	p.Warning("passwords do not match")
	p.Failure("failed")
	assert.Contains(t, out.String(), "PKI Tool v1.0.0")
	assert.Contains(t, out.String(), "created example.pfx")
	assert.Contains(t, out.String(), "passwords do not match")
}

func TestConfirmPasswordLengthMismatch(t *testing.T) {

	for _, input := range []string{"pw\npw1\n", "pw1\npw\n", "pw1\n\n", "\npw1\n"} {
		p := NewPrompter(strings.NewReader(input), io.Discard)
		_, matches, err := p.ConfirmPassword("Archive password")
		assert.Nil(t, err)
		assert.False(t, matches, input)
	}

	p := NewPrompter(strings.NewReader("\n\n"), io.Discard)
	password, matches, err := p.ConfirmPassword("Archive password")
	assert.Nil(t, err)
	assert.True(t, matches)
	assert.Empty(t, password)
}
