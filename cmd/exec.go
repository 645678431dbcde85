/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/hitzhangjie/tinydbg/cmd/debug"
	"github.com/hitzhangjie/tinydbg/pkg/target"

	"github.com/spf13/cobra"
)

// execCmd represents the exec command
var execCmd = &cobra.Command{
	Use:   "exec <prog> [args...]",
	Short: "调试可执行程序",
	Long:  `调试可执行程序`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 {
			return errors.New("usage: tinydbg exec <prog> [args...]")
		}

		// start tracee and wait tracee stopped at its first instruction
		dbp, err := target.Launch(args[0], args[1:])
		if err != nil {
			return err
		}
		target.DBPProcess = dbp

		fmt.Printf("process %d launched\n", dbp.Pid())
		return nil
	},
	PostRun: func(cmd *cobra.Command, args []string) {
		// tracee is started by the debugger, Cleanup will kill it
		debug.CurrentSession = debug.NewDebugSession().AtExit(debug.Cleanup)
		debug.CurrentSession.Start()
	},
}

func init() {
	rootCmd.AddCommand(execCmd)
}
