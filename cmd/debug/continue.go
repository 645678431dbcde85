package debug

import (
	"fmt"

	"github.com/hitzhangjie/tinydbg/pkg/target"
	"github.com/spf13/cobra"
)

var continueCmd = &cobra.Command{
	Use:   "continue",
	Short: "恢复执行，运行到下次停止",
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupCtrlFlow,
	},
	Aliases: []string{"c"},
	RunE: func(cmd *cobra.Command, args []string) error {
		dbp := target.DBPProcess

		if err := dbp.Resume(); err != nil {
			return err
		}

		reason, err := dbp.WaitOnSignal()
		if err != nil {
			return err
		}
		fmt.Println(reason.Message(dbp.Pid()))
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(continueCmd)
}
