// cmd/vhwtool/main.go
//
// vhwtool drives a simulated board from the host side: load a profile,
// inspect the state tables, or poke at pins and buses interactively.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"simboard-go/types"
	"simboard-go/vclock"
	"simboard-go/vhw"
)

func main() {
	var profilePath string

	root := &cobra.Command{
		Use:           "vhwtool",
		Short:         "virtual hardware board inspector and driver",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&profilePath, "profile", "p", "", "board profile JSON")

	root.AddCommand(&cobra.Command{
		Use:   "inspect",
		Short: "print the board state tables as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := buildBoard(profilePath)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(inspectBoard(b))
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "shell",
		Short: "interactive poke shell (no clock driver)",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := buildBoard(profilePath)
			if err != nil {
				return err
			}
			return repl(b, cmd)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "interactive shell with the realtime clock running",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := buildBoard(profilePath)
			if err != nil {
				return err
			}
			b.Clock.SetMode(types.Realtime)
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			vclock.NewDriver(b.Clock, time.Millisecond).Start(ctx)
			return repl(b, cmd)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "vhwtool:", err)
		os.Exit(1)
	}
}

func repl(b *vhw.Board, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	sc := bufio.NewScanner(cmd.InOrStdin())
	fmt.Fprint(out, "> ")
	for sc.Scan() {
		line := sc.Text()
		if line == "exit" || line == "quit" {
			return nil
		}
		res, err := execLine(b, line)
		if err != nil {
			fmt.Fprintln(out, "error:", err)
		} else if res != "" {
			fmt.Fprintln(out, res)
		}
		fmt.Fprint(out, "> ")
	}
	return sc.Err()
}
