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
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/eslsoft/mistbook/internal/infrastructure/config"
)

func tablesFromConfig(key string) []string {
	return normalizeTables(viper.GetStringSlice(key))
}

func normalizeTables(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	result := make([]string, 0, len(values))
	for _, value := range values {
		name := strings.TrimSpace(value)
		if name == "" {
			continue
		}
		result = append(result, strings.ToLower(name))
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func bindFlagToViper(key string, flag *pflag.Flag) {
	if flag == nil {
		return
	}
	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// resolveBackupTarget picks the database the backup service talks to.
// An explicit --driver/--dsn pair wins; otherwise the configured postgres
// database is used. The sqlite3 driver allows snapshotting into (or out of)
// a local file without a running postgres instance.
func resolveBackupTarget(cmd *cobra.Command, cfg *config.Config) (driver, dsn string, err error) {
	driver, _ = cmd.Flags().GetString("driver")
	dsn, _ = cmd.Flags().GetString("dsn")

	switch {
	case driver == "" && dsn == "":
		return "postgres", cfg.DatabaseURL(), nil
	case driver != "" && dsn != "":
		return driver, dsn, nil
	default:
		return "", "", fmt.Errorf("--driver and --dsn must be given together")
	}
}

type cliProgress struct {
	out         io.Writer
	totals      map[string]int
	counts      map[string]int
	lastPrinted map[string]int
	steps       map[string]int
}

func newCLIProgress(out io.Writer) *cliProgress {
	return &cliProgress{
		out:         out,
		totals:      make(map[string]int),
		counts:      make(map[string]int),
		lastPrinted: make(map[string]int),
		steps:       make(map[string]int),
	}
}

func (p *cliProgress) StartTable(table string, total int) {
	if total < 0 {
		total = 0
	}
	p.totals[table] = total
	p.counts[table] = 0
	p.lastPrinted[table] = 0
	p.steps[table] = progressStep(total)
	fmt.Fprintf(p.out, "exporting %s (%d rows)\n", table, total)
}

func (p *cliProgress) Increment(table string, delta int) {
	if delta <= 0 {
		return
	}
	current := p.counts[table] + delta
	p.counts[table] = current
	total := p.totals[table]
	step := p.steps[table]
	if step <= 0 {
		step = 1
	}
	last := p.lastPrinted[table]
	if current == total || last == 0 || current-last >= step {
		p.printProgress(table, current, total)
		p.lastPrinted[table] = current
	}
}

func (p *cliProgress) FinishTable(table string) {
	current := p.counts[table]
	total := p.totals[table]
	if current != p.lastPrinted[table] {
		p.printProgress(table, current, total)
	}
	if total > 0 {
		fmt.Fprintf(p.out, "finished %s: %d/%d rows\n", table, current, total)
	} else {
		fmt.Fprintf(p.out, "finished %s: %d rows\n", table, current)
	}
	delete(p.counts, table)
	delete(p.totals, table)
	delete(p.lastPrinted, table)
	delete(p.steps, table)
}

func (p *cliProgress) printProgress(table string, current, total int) {
	if total > 0 {
		fmt.Fprintf(p.out, "progress %s: %d/%d\n", table, current, total)
	} else {
		fmt.Fprintf(p.out, "progress %s: %d\n", table, current)
	}
}

func progressStep(total int) int {
	if total <= 0 {
		return 500
	}
	step := total / 20
	if step < 1 {
		return 1
	}
	return step
}
