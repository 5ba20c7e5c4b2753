package model

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestKindOf_ThroughWrapping(t *testing.T) {
	base := NewKindError(KindAnchorMissing, "/tmp/a.pdf", errors.New("no Totalbeløp"))
	wrapped := eris.Wrap(base, "pdfparse: parse")

	assert.Equal(t, KindAnchorMissing, KindOf(wrapped))
	assert.True(t, KindOf(wrapped).Fatal())
	assert.Contains(t, base.Error(), "/tmp/a.pdf")
}

func TestKindOf_Plain(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("x")))
	assert.False(t, KindFieldNotFound.Fatal())
}

func TestErrorCategory_Message(t *testing.T) {
	assert.Equal(t, "Tidsavbrudd - Operasjonen tok for lang tid", CategoryTimeout.Message())
	assert.Equal(t, "Ukjent feil", ErrorCategory("OTHER").Message())
}

func TestCategoryOf(t *testing.T) {
	_, readErr := os.ReadFile("/does/not/exist/side.json")

	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ""},
		{"kind timeout", NewKindError(KindTimeout, "", errors.New("x")), CategoryTimeout},
		{"kind shape", eris.Wrap(NewKindError(KindUnrecognizedShape, "p1/SI", errors.New("x")), "aggregate"), CategoryValidation},
		{"deadline", eris.Wrap(context.DeadlineExceeded, "visit"), CategoryTimeout},
		{"file", eris.Wrap(readErr, "store: read"), CategoryFileSystem},
		{"navigation", errors.New("Navigation timeout of 30000 ms exceeded"), CategoryTimeout},
		{"browser", errors.New("session: launch browser: exec failed"), CategoryBrowser},
		{"bankid", errors.New("BankID rejected the code"), CategoryAuthentication},
		{"other", errors.New("selector missing"), CategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryOf(tt.err))
		})
	}
}
