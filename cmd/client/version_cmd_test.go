package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/openmined/songbox/internal/version"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand_Local(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"version"}, version.Detailed()},
		{[]string{"version", "--short"}, version.Short()},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			root := &cobra.Command{Use: "songbox"}
			root.AddCommand(newVersionCmd())

			var out bytes.Buffer
			root.SetOut(&out)
			root.SetArgs(tt.args)
			require.NoError(t, root.Execute())
			assert.Equal(t, tt.want, strings.TrimSpace(out.String()))
		})
	}
}

func TestVersionCommand_RejectsArgs(t *testing.T) {
	out, code := runCLI(t, "version", "extra")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "unknown command")
}

func TestVersionCommand_RemoteFromEnv(t *testing.T) {
	url := startTestServer(t)

	out, code := runCLIEnv(t, []string{"SONGBOX_SERVER_URL=" + url}, "version", "--remote", "--short")
	require.Equal(t, 0, code, out)

	plain := stripANSI(out)
	assert.Contains(t, plain, version.Short())
	assert.Contains(t, plain, version.DetailedWithApp())
	assert.Contains(t, plain, url)
}

func TestVersionCommand_RemoteUnreachable(t *testing.T) {
	out, code := runCLI(t, "version", "--remote", "--server", "http://127.0.0.1:1", "--timeout", "1s")
	assert.Equal(t, 1, code)
	assert.Contains(t, stripANSI(out), "query http://127.0.0.1:1")
}
