package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	keyFunc string
	keyArgs []string
)

var keyCmd = &cobra.Command{
	Use:   "key PATH",
	Short: "Show the cache key of a path-keyed call",
	Long: `Computes the key a memoized function named --func would use for PATH and
reports whether the store holds a result for it. Each --arg is added as a
string argument.`,
	Args: cobra.ExactArgs(1),
	RunE: runKey,
}

func init() {
	keyCmd.Flags().StringVar(&keyFunc, "func", "", "name of the memoized function (required)")
	keyCmd.Flags().StringArrayVar(&keyArgs, "arg", nil, "additional call argument (repeatable)")
	_ = keyCmd.MarkFlagRequired("func")
	rootCmd.AddCommand(keyCmd)
}

func runKey(cmd *cobra.Command, args []string) error {
	c, _, err := openCache()
	if err != nil {
		return err
	}
	defer c.Close()

	out := cmd.OutOrStdout()
	dec := c.Decide(cmd.Context(), args[0])
	if dec.Bypass {
		fmt.Fprintf(out, "path:     %s\n", dec.Path)
		fmt.Fprintf(out, "decision: bypass (%s)\n", dec.Reason)
		return nil
	}

	kb := c.Key().Func(keyFunc).Path(dec.Path)
	for _, a := range keyArgs {
		kb.Arg(a)
	}
	key := kb.Fingerprint(dec.Fingerprint).Build()
	if err := key.Err(); err != nil {
		return err
	}

	_, stored, err := c.Store().Get(key.Hash())
	if err != nil {
		return fmt.Errorf("failed to look up key: %w", err)
	}

	fmt.Fprintf(out, "path:     %s\n", dec.Path)
	fmt.Fprintf(out, "key:      %s\n", key.Hash())
	fmt.Fprintf(out, "fields:   %s\n", key)
	fmt.Fprintf(out, "stored:   %t\n", stored)
	return nil
}
