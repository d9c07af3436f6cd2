package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetRootFlags restores every parsed flag on the shared root command to
// its default, so one execution cannot leak state into the next.
func resetRootFlags() {
	rootCmd.SetArgs(nil)
	for _, fs := range []*pflag.FlagSet{rootCmd.Flags(), rootCmd.PersistentFlags()} {
		fs.VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				_ = f.Value.Set(f.DefValue)
				f.Changed = false
			}
		})
	}
}

// executeRoot runs the shared root command with args from a clean flag state.
func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetRootFlags()
	t.Cleanup(resetRootFlags)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	assert.NotNil(t, rootCmd)
	assert.Equal(t, "rectify", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRootCommandHelp(t *testing.T) {
	output, err := executeRoot(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, output, "perspective distortion")
	assert.Contains(t, output, "Available Commands:")
	assert.Contains(t, output, "Usage:")
}

func TestRootCommandVersion(t *testing.T) {
	output, err := executeRoot(t, "--version")
	require.NoError(t, err)

	assert.Contains(t, output, "rectify version")
	assert.Contains(t, output, "Commit:")
}

// The version run must still work after a help run parsed its flags on the
// same shared command.
func TestRootCommandVersionAfterHelp(t *testing.T) {
	_, err := executeRoot(t, "--help")
	require.NoError(t, err)

	output, err := executeRoot(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, output, "rectify version")
	assert.NotContains(t, output, "Available Commands:")
}

func TestRootCommandSubcommands(t *testing.T) {
	subcommands := rootCmd.Commands()
	commandNames := make([]string, len(subcommands))
	for i, subcmd := range subcommands {
		commandNames[i] = subcmd.Name()
	}

	expectedCommands := []string{"image", "batch", "serve"}
	for _, expected := range expectedCommands {
		assert.Contains(t, commandNames, expected, "Expected subcommand '%s' not found", expected)
	}
}

func TestRootCommandInvalidFlag(t *testing.T) {
	_, err := executeRoot(t, "--invalid-flag")
	assert.Error(t, err)
}

func TestGetConfigLoader(t *testing.T) {
	loader := GetConfigLoader()
	assert.NotNil(t, loader)

	// Subsequent calls return the same loader
	assert.Same(t, loader, GetConfigLoader())
}
