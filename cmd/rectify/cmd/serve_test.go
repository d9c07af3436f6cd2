package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCommand(t *testing.T) {
	assert.NotNil(t, serveCmd)
	assert.True(t, strings.HasPrefix(serveCmd.Use, "serve"))
	assert.NotEmpty(t, serveCmd.Short)
	assert.Contains(t, serveCmd.Long, "/rectify")
}

func TestServeCommandFlags(t *testing.T) {
	flags := serveCmd.Flags()

	for _, name := range []string{"host", "port", "cors-origin", "max-upload-size", "timeout", "shutdown-timeout", "rate-limit-enabled", "rate-limit-per-sec", "rate-limit-burst"} {
		assert.NotNil(t, flags.Lookup(name), "flag %q missing", name)
	}
}

func TestServeCommandRejectsInvalidPort(t *testing.T) {
	require.NoError(t, serveCmd.Flags().Set("port", "70000"))
	t.Cleanup(func() {
		_ = serveCmd.Flags().Set("port", "8080")
		serveCmd.Flags().Lookup("port").Changed = false
	})

	err := serveCmd.RunE(serveCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port number")
}
