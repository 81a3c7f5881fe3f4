package cmd

import (
	"bytes"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd_Output(t *testing.T) {
	cmd := newVersionCmd()

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "go version")
}

func TestVersionLines(t *testing.T) {
	tests := []struct {
		name string
		info debug.BuildInfo
		want []string
	}{
		{
			name: "release",
			info: debug.BuildInfo{GoVersion: "go1.25.1", Main: debug.Module{Version: "v0.3.0"}},
			want: []string{"bytemut version\tv0.3.0", "go version\tgo1.25.1"},
		},
		{
			name: "dirty checkout",
			info: debug.BuildInfo{
				GoVersion: "go1.25.1",
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "4f2a9c1"},
					{Key: "vcs.modified", Value: "true"},
				},
			},
			want: []string{"bytemut version\t(devel)", "revision\t4f2a9c1 (modified)", "go version\tgo1.25.1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, versionLines(&tt.info))
		})
	}
}
