package debug

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func TestResolveCommand_Prefix(t *testing.T) {
	for _, token := range []string{"c", "co", "con", "continue"} {
		cmd, err := resolveCommand(debugRootCmd, token)
		assert.Nil(t, err, "token %q", token)
		assert.Equal(t, "continue", cmd.Name(), "token %q", token)
	}

	for _, token := range []string{"e", "ex", "exit", "q", "quit"} {
		cmd, err := resolveCommand(debugRootCmd, token)
		assert.Nil(t, err, "token %q", token)
		assert.Equal(t, "exit", cmd.Name(), "token %q", token)
	}
}

func TestResolveCommand_Unknown(t *testing.T) {
	for _, token := range []string{"bogus", "continued", "xq"} {
		cmd, err := resolveCommand(debugRootCmd, token)
		assert.Nil(t, cmd)

		cerr, ok := err.(*CommandError)
		assert.True(t, ok)
		assert.Equal(t, token, cerr.Token)
		assert.Equal(t, "unrecognized command '"+token+"'", cerr.Error())
	}
}

func TestResolveCommand_Empty(t *testing.T) {
	cmd, err := resolveCommand(debugRootCmd, "")
	assert.Nil(t, cmd)

	cerr, ok := err.(*CommandError)
	assert.True(t, ok)
	assert.Equal(t, "", cerr.Token)
}

func TestResolveCommand_Ambiguous(t *testing.T) {
	root := &cobra.Command{Use: "root"}
	root.AddCommand(&cobra.Command{Use: "step", Run: func(*cobra.Command, []string) {}})
	root.AddCommand(&cobra.Command{Use: "stop", Run: func(*cobra.Command, []string) {}})

	cmd, err := resolveCommand(root, "st")
	assert.Nil(t, cmd)

	aerr, ok := err.(*AmbiguousCommandError)
	assert.True(t, ok)
	assert.Equal(t, "st", aerr.Token)
	assert.Equal(t, []string{"step", "stop"}, aerr.Candidates)

	// a longer prefix disambiguates
	cmd, err = resolveCommand(root, "ste")
	assert.Nil(t, err)
	assert.Equal(t, "step", cmd.Name())
}

func TestSplitLine(t *testing.T) {
	fields, err := splitLine("continue  now")
	assert.Nil(t, err)
	assert.Equal(t, []string{"continue", "now"}, fields)

	fields, err = splitLine("print 'hello world'")
	assert.Nil(t, err)
	assert.Equal(t, []string{"print", "hello world"}, fields)

	fields, err = splitLine("   ")
	assert.Nil(t, err)
	assert.Len(t, fields, 0)

	_, err = splitLine("echo `date`")
	assert.NotNil(t, err)
}

func TestDispatch_ArgumentsIgnoredByMatcher(t *testing.T) {
	var got []string
	root := &cobra.Command{Use: "root", SilenceErrors: true, SilenceUsage: true}
	root.AddCommand(&cobra.Command{
		Use: "run",
		Run: func(cmd *cobra.Command, args []string) { got = args },
	})

	s := &DebugSession{root: root}
	err := s.Dispatch("ru extra args")
	assert.Nil(t, err)
	assert.Equal(t, []string{"extra", "args"}, got)
}

func TestDispatch_UnknownToken(t *testing.T) {
	s := &DebugSession{root: debugRootCmd}
	err := s.Dispatch("bogus")

	cerr, ok := err.(*CommandError)
	assert.True(t, ok)
	assert.Equal(t, "bogus", cerr.Token)
}
