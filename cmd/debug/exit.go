package debug

import (
	"github.com/hitzhangjie/tinydbg/pkg/target"
	"github.com/spf13/cobra"
)

var exitCmd = &cobra.Command{
	Use:   "exit",
	Short: "结束调试会话",
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupOthers,
	},
	Aliases: []string{"quit", "q"},
	Run: func(cmd *cobra.Command, args []string) {
		CurrentSession.Stop()
	},
}

func init() {
	debugRootCmd.AddCommand(exitCmd)
}

// Cleanup 清理调试会话
//
// The detach logic itself knows whether the tracee was launched by us or
// attached to, and either kills it or leaves it running accordingly.
func Cleanup() {
	dbp := target.DBPProcess
	if dbp == nil {
		return
	}
	dbp.Detach()
}
