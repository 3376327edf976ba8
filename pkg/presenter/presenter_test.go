package presenter

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func newTestPresenter() (*TerminalPresenter, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewWithOptions(&out, &errOut, ColorNever), &out, &errOut
}

func TestSuccessAndInfo(t *testing.T) {
	p, out, _ := newTestPresenter()

	p.Success("committed 2 skills")
	p.Info("plain line")

	assert.Contains(t, out.String(), "✓ committed 2 skills")
	assert.Contains(t, out.String(), "plain line")
}

func TestErrorGoesToStderr(t *testing.T) {
	p, out, errOut := newTestPresenter()

	p.Error(errors.New("boom"), "staging")

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "[ERROR] staging: boom")
}

func TestQuietSuppressesAllButErrors(t *testing.T) {
	p, out, errOut := newTestPresenter()
	p.SetQuiet(true)

	p.Success("hidden")
	p.Warning("hidden")
	p.Info("hidden")
	p.Section("hidden")
	p.Separator()
	p.Error(errors.New("still shown"), "")

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "still shown")
	assert.True(t, p.IsQuiet())
}

func TestSection(t *testing.T) {
	p, out, _ := newTestPresenter()

	p.Section("Validation")

	assert.Contains(t, out.String(), "Validation\n----------\n")
}
