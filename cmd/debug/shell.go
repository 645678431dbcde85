package debug

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cosiner/argv"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
)

const (
	cmdGroupAnnotation = "cmd_group_annotation"

	cmdGroupCtrlFlow = "1-execute"
	cmdGroupOthers   = "2-other"
	cmdGroupCobra    = "other"

	cmdGroupDelimiter = "-"

	prefix    = "tinydbg> "
	descShort = "tinydbg interactive debugging commands"
)

var debugRootCmd = &cobra.Command{
	Use:           "help [command]",
	Short:         descShort,
	SilenceErrors: true,
	SilenceUsage:  true,
}

var (
	CurrentSession *DebugSession
)

// CommandError reports an input token that resolves to no known command.
type CommandError struct {
	Token string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("unrecognized command '%s'", e.Token)
}

// AmbiguousCommandError reports a token that is a prefix of more than one
// known command.
type AmbiguousCommandError struct {
	Token      string
	Candidates []string
}

func (e *AmbiguousCommandError) Error() string {
	return fmt.Sprintf("ambiguous command '%s': matches %s", e.Token, strings.Join(e.Candidates, ", "))
}

// DebugSession 调试会话
type DebugSession struct {
	done   chan bool
	prefix string
	root   *cobra.Command
	liner  *liner.State

	defers []func()
}

// NewDebugSession 创建一个debug专用的交互管理器
func NewDebugSession() *DebugSession {
	fn := func(cmd *cobra.Command, args []string) {
		fmt.Println(cmd.Short)
		fmt.Println()
		fmt.Println(cmd.Use)
		fmt.Println(cmd.Flags().FlagUsages())

		usage := helpMessageByGroups(cmd)
		fmt.Println(usage)
	}
	debugRootCmd.SetHelpFunc(fn)

	return &DebugSession{
		done:   make(chan bool),
		prefix: prefix,
		root:   debugRootCmd,
		liner:  liner.NewLiner(),
	}
}

// Start runs the read-dispatch loop until input reaches EOF or the session
// is stopped, then runs the registered AtExit functions.
func (s *DebugSession) Start() {
	s.liner.SetCompleter(completer)
	s.liner.SetTabCompletionStyle(liner.TabPrints)

	defer func() {
		for idx := len(s.defers) - 1; idx >= 0; idx-- {
			s.defers[idx]()
		}
	}()

	for {
		select {
		case <-s.done:
			s.liner.Close()
			return
		default:
		}

		txt, err := s.liner.Prompt(s.prefix)
		if err != nil {
			s.liner.Close()
			if err == io.EOF || err == liner.ErrPromptAborted {
				return
			}
			LogError(err)
			os.Exit(1)
		}

		txt = strings.TrimSpace(txt)
		if len(txt) != 0 {
			s.liner.AppendHistory(txt)
		}

		if err := s.Dispatch(txt); err != nil {
			LogError(err)
		}
	}
}

// Dispatch routes one line of input: the first whitespace-delimited token is
// matched as an unambiguous prefix of a registered command name or alias,
// the remaining arguments are handed to the command untouched.
func (s *DebugSession) Dispatch(line string) error {
	fields, err := splitLine(line)
	if err != nil {
		return err
	}

	var token string
	if len(fields) != 0 {
		token = fields[0]
	}
	cmd, err := resolveCommand(s.root, token)
	if err != nil {
		return err
	}

	s.root.SetArgs(append([]string{cmd.Name()}, fields[1:]...))
	return s.root.Execute()
}

// AtExit registers fn to run when the session ends, last registered first.
func (s *DebugSession) AtExit(fn func()) *DebugSession {
	s.defers = append(s.defers, fn)
	return s
}

func (s *DebugSession) Stop() {
	close(s.done)
}

// LogError reports err on standard error in the CLI's error format.
func LogError(err error) {
	fmt.Fprintf(os.Stderr, "%s: error: %v\n", filepath.Base(os.Args[0]), err)
}

// splitLine splits input into arguments, honoring shell-style quoting.
func splitLine(line string) ([]string, error) {
	if strings.TrimSpace(line) == "" {
		return nil, nil
	}
	v, err := argv.Argv(line, func(s string) (string, error) {
		return "", fmt.Errorf("backtick not supported in '%s'", s)
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(v) != 1 {
		return nil, fmt.Errorf("illegal command line '%s'", line)
	}
	return v[0], nil
}

// resolveCommand maps token to exactly one registered command by prefix
// matching over command names and aliases. An empty token, an unknown token
// and a token matching several distinct commands all fail.
func resolveCommand(root *cobra.Command, token string) (*cobra.Command, error) {
	if token == "" {
		return nil, &CommandError{Token: token}
	}

	var matches []*cobra.Command
	for _, c := range root.Commands() {
		for _, name := range append([]string{c.Name()}, c.Aliases...) {
			if strings.HasPrefix(name, token) {
				matches = append(matches, c)
				break
			}
		}
	}

	switch len(matches) {
	case 0:
		return nil, &CommandError{Token: token}
	case 1:
		return matches[0], nil
	default:
		candidates := make([]string, 0, len(matches))
		for _, c := range matches {
			candidates = append(candidates, c.Name())
		}
		sort.Strings(candidates)
		return nil, &AmbiguousCommandError{Token: token, Candidates: candidates}
	}
}

func completer(line string) []string {
	cmds := []string{}
	for _, c := range debugRootCmd.Commands() {
		// complete cmd
		if strings.HasPrefix(c.Use, line) {
			cmds = append(cmds, strings.Split(c.Use, " ")[0])
		}
		// complete cmd's aliases
		for _, alias := range c.Aliases {
			if strings.HasPrefix(alias, line) {
				cmds = append(cmds, alias)
			}
		}
	}
	return cmds
}

// helpMessageByGroups 将各个命令按照分组归类，再展示帮助信息
func helpMessageByGroups(cmd *cobra.Command) string {
	// key:group, val:sorted commands in same group
	groups := map[string][]string{}
	for _, c := range cmd.Commands() {
		// 如果没有指定命令分组，放入other组
		var groupName string
		v, ok := c.Annotations[cmdGroupAnnotation]
		if !ok {
			groupName = cmdGroupCobra
		} else {
			groupName = v
		}

		groupCmds := groups[groupName]
		groupCmds = append(groupCmds, fmt.Sprintf("  %-16s:%s", c.Name(), c.Short))
		sort.Strings(groupCmds)

		groups[groupName] = groupCmds
	}

	if len(groups[cmdGroupCobra]) != 0 {
		groups[cmdGroupOthers] = append(groups[cmdGroupOthers], groups[cmdGroupCobra]...)
	}
	delete(groups, cmdGroupCobra)

	// 按照分组名进行排序
	groupNames := []string{}
	for k := range groups {
		groupNames = append(groupNames, k)
	}
	sort.Strings(groupNames)

	// 按照group分组，并对组内命令进行排序
	buf := bytes.Buffer{}
	for _, groupName := range groupNames {
		commands := groups[groupName]

		group := strings.Split(groupName, cmdGroupDelimiter)[1]
		buf.WriteString(fmt.Sprintf("- [%s]\n", group))

		for _, cmd := range commands {
			buf.WriteString(fmt.Sprintf("%s\n", cmd))
		}
		buf.WriteString("\n")
	}
	return buf.String()
}
