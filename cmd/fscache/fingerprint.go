package main

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/gophersatwork/fscache"
)

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint PATH",
	Short: "Show the fingerprint of a file or directory",
	Long: `Resolves PATH to its real path, fingerprints it and prints the cache
decision: the fingerprint tuple with configured tokens, or why the cache
would be bypassed.`,
	Args: cobra.ExactArgs(1),
	RunE: runFingerprint,
}

func init() {
	rootCmd.AddCommand(fingerprintCmd)
}

func runFingerprint(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	decider := fscache.NewDecider(fscache.DeciderConfig{
		Fs:     afero.NewOsFs(),
		Walker: newWalker(cfg, logger),
		Window: cfg.Window,
		Tokens: cfg.Tokens,
		Logger: logger,
	})
	dec := decider.Decide(cmd.Context(), args[0])

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "path:        %s\n", dec.Path)
	if dec.Bypass {
		fmt.Fprintf(out, "decision:    bypass (%s)\n", dec.Reason)
		return nil
	}
	fmt.Fprintf(out, "decision:    lookup\n")
	fmt.Fprintf(out, "fingerprint: %s\n", strings.Join(dec.Fingerprint, " "))
	return nil
}
