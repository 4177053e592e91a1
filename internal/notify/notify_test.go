package notify

import (
	"bytes"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
)

func TestTerminal_Notify(t *testing.T) {
	pterm.DisableColor()
	defer pterm.EnableColor()

	var buf bytes.Buffer
	term := NewTerminal(&buf)

	term.Notify(Notification{Level: LevelError, Message: "Service unavailable"})
	term.Notify(Notification{Level: LevelWarning, Title: "Validation", Field: "email", Message: "is taken"})

	out := buf.String()
	assert.Contains(t, out, "Service unavailable")
	assert.Contains(t, out, "Validation - email: is taken")
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	r.Notify(Notification{Message: "one"})
	r.Notify(Notification{Message: "two"})

	all := r.All()
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, "one", all[0].Message)
	assert.Equal(t, "two", all[1].Message)
}
