package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/compose"
	"github.com/gogpu/compose/internal/scenefile"
)

// errInvalidScene is returned by validate when any node fails.
var errInvalidScene = errors.New("scene is invalid")

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate SCENE",
		Short: "Check a scene document without rendering it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scenefile.Load(args[0])
			if sc == nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err != nil {
				for _, e := range flatten(err) {
					fmt.Fprintf(out, "error: %v\n", e)
				}
				return errInvalidScene
			}
			fmt.Fprintf(out, "ok: %d nodes, viewport %dx%d\n", len(sc.Nodes), sc.Viewport.Width, sc.Viewport.Height)
			for _, n := range sc.Nodes {
				fmt.Fprintf(out, "  %-16s %-10s z=%d blend=%s\n", n.ID, n.Kind, n.ZOrder, displayMode(n.BlendMode))
			}
			return nil
		},
	}
}

// flatten unpacks joined errors.
func flatten(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

func displayMode(m compose.BlendMode) compose.BlendMode {
	if m == "" {
		return compose.BlendNormal
	}
	return m
}
