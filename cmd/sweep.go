/*
Copyright © 2025 Ambor <saltbo@foxmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eslsoft/mistbook/internal/app"
)

// sweepCmd archives cards whose review date is stale beyond the retention
// window. Intended to run from a daily cron job.
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Archive overdue review cards",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetInt64("user")

		container, cleanup, err := app.Initialize()
		if err != nil {
			return fmt.Errorf("initialize application: %w", err)
		}
		defer cleanup()

		ctx := cmd.Context()
		var archived int64
		if userID > 0 {
			archived, err = container.Archiver.ArchiveOverdueCards(ctx, userID)
		} else {
			archived, err = container.Archiver.ArchiveAllOverdue(ctx)
		}
		if err != nil {
			return fmt.Errorf("archive sweep: %w", err)
		}
		cmd.Printf("archived %d cards\n", archived)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().Int64("user", 0, "sweep a single user instead of all users")
}
