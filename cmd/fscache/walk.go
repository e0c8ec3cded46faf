package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gophersatwork/fscache"
)

var walkList bool

var walkCmd = &cobra.Command{
	Use:   "walk PATH",
	Short: "Walk a directory and summarize its fingerprint",
	Long: `Walks every regular file under PATH with the configured walker and prints
the aggregate directory fingerprint. With --list each file fingerprint is
printed as it is produced.`,
	Args: cobra.ExactArgs(1),
	RunE: runWalk,
}

func init() {
	walkCmd.Flags().BoolVarP(&walkList, "list", "l", false, "print every file fingerprint")
	rootCmd.AddCommand(walkCmd)
}

func runWalk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	w := newWalker(cfg, logger)

	start := time.Now()
	var dir fscache.DirFingerprint
	var total int64
	for path, fp := range w.Walk(cmd.Context(), args[0]) {
		dir.AddFile(path, fp)
		total += fp.Size
		if walkList {
			fmt.Fprintf(out, "%s\t%s\n", path, strings.Join(fp.Tuple(), " "))
		}
	}
	elapsed := time.Since(start)

	fmt.Fprintf(out, "files:       %s\n", humanize.Comma(int64(dir.Len())))
	fmt.Fprintf(out, "size:        %s\n", humanize.IBytes(uint64(total)))
	if last, ok := dir.LastModified(); ok {
		fmt.Fprintf(out, "modified:    %s\n", humanize.Time(time.Unix(0, last)))
	}
	fmt.Fprintf(out, "fingerprint: %s\n", strings.Join(dir.Tuple(), " "))
	fmt.Fprintf(out, "walked in:   %s (%s, %d workers)\n", elapsed.Round(time.Millisecond), cfg.Walker, cfg.Workers)
	return nil
}
