package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDownloadState_Equal(t *testing.T) {
	tests := []struct {
		name string
		a, b DownloadState
		want bool
	}{
		{"waiting", Waiting(), Waiting(), true},
		{"downloading", Downloading(), Downloading(), true},
		{"finished", Finished(), Finished(), true},
		{"different kinds", Waiting(), Downloading(), false},
		{"finished vs failed", Finished(), Failed(errors.New("x")), false},
		{"failed same message", Failed(errors.New("boom")), Failed(fmt.Errorf("boom")), true},
		{"failed different message", Failed(errors.New("boom")), Failed(errors.New("bang")), false},
		{"failed nil causes", Failed(nil), Failed(nil), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
			assert.Equal(t, tt.want, tt.b.Equal(tt.a))
		})
	}
}

func TestDownloadState_IsTerminal(t *testing.T) {
	assert.False(t, Waiting().IsTerminal())
	assert.False(t, Downloading().IsTerminal())
	assert.True(t, Finished().IsTerminal())
	assert.True(t, Failed(errors.New("x")).IsTerminal())
}

func TestDownloadState_String(t *testing.T) {
	assert.Equal(t, "waiting", Waiting().String())
	assert.Equal(t, "failed(unexpected status code: 404)", Failed(errors.New("unexpected status code: 404")).String())
	assert.Equal(t, "", Finished().Message())
	assert.Equal(t, "nope", Failed(errors.New("nope")).Message())
}

func TestDownloadStatus_Constructors(t *testing.T) {
	p := Progress(0.25)
	assert.Equal(t, EventProgress, p.Kind)
	assert.InDelta(t, 0.25, p.Fraction, 1e-9)

	f := Completed("/tmp/MyDownloads/a.pdf")
	assert.Equal(t, EventFinished, f.Kind)
	assert.Equal(t, "/tmp/MyDownloads/a.pdf", f.Location)
	assert.Equal(t, "finished(/tmp/MyDownloads/a.pdf)", f.String())
}
