package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFailure(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"Update 3 links in notes/a.md.", false},
		{"Update 4 links in 2 files.", false},
		{"Update links error, see log.", true},
		{"Copy assets/pic.png to notes/assets/pic.png failed: destination exists with different content", true},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, isFailure(c.msg), c.msg)
	}
}

func TestConfirm(t *testing.T) {
	assert.True(t, confirm(strings.NewReader("y\n"), "Continue?"))
	assert.True(t, confirm(strings.NewReader("YES\n"), "Continue?"))
	assert.False(t, confirm(strings.NewReader("\n"), "Continue?"))
	assert.False(t, confirm(strings.NewReader(""), "Continue?"))
}
