package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chatdb/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Backend:       "sqlite",
		SQLitePath:    "chatdb.db",
		MongoURI:      "mongodb://localhost:27017",
		MongoDatabase: "chatdb",
		LogLevel:      "info",
	}
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(testConfig())
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	_, err := executeCommand(t, "ask", "total sales", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestRootCommand_InvalidBackend(t *testing.T) {
	_, err := executeCommand(t, "explore", "--backend", "postgres")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid backend "postgres"`)
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmd := NewRootCommand(testConfig())

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"ask", "explore", "upload", "generate"} {
		assert.True(t, names[want], want)
	}
}

func TestRootCommand_Help(t *testing.T) {
	out, err := executeCommand(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "natural-language questions")
}

func TestGenerate_RejectsZeroCount(t *testing.T) {
	_, err := executeCommand(t, "generate", "--count", "0", "--db", ":memory:")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count must be at least 1")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
