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
	"strconv"

	"github.com/hitzhangjie/tinydbg/cmd/debug"
	"github.com/hitzhangjie/tinydbg/pkg/target"

	"github.com/spf13/cobra"
)

// attachCmd represents the attach command
var attachCmd = &cobra.Command{
	Use:   "attach <traceePID>",
	Short: "调试运行中进程",
	Long:  `调试运行中进程`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.New("usage: tinydbg attach <traceePID>")
		}

		pid, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid traceePID '%s'", args[0])
		}

		dbp, err := target.Attach(pid)
		if err != nil {
			return err
		}
		target.DBPProcess = dbp

		fmt.Printf("process %d attached\n", dbp.Pid())
		return nil
	},
	PostRun: func(cmd *cobra.Command, args []string) {
		// tracee is an existing process, Cleanup will detach and leave it running
		debug.CurrentSession = debug.NewDebugSession().AtExit(debug.Cleanup)
		debug.CurrentSession.Start()
	},
}

func init() {
	rootCmd.AddCommand(attachCmd)
}
