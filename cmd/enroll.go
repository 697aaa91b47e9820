package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/illarion/pinlock/internal/auth"
)

// Enroll stores a new PIN. An existing PIN is only replaced with force, and
// never while a lockout is in force.
func Enroll(ctx context.Context, opts Options, force bool) {
	run(ctx, opts, func(ctx context.Context, env *Env) error {
		return enroll(ctx, env, defaultPINReader(), os.Stdout, os.Stderr, force)
	})
}

func enroll(ctx context.Context, env *Env, in PINReader, out, errOut io.Writer, force bool) error {
	enrolled, err := env.enrolled()
	if err != nil {
		return err
	}
	if enrolled {
		if !force {
			return ErrAlreadyEnrolled
		}
		if env.Policy.IsLockedOut(ctx) {
			msg, _ := env.Policy.StatusMessage(ctx)
			fmt.Fprintln(errOut, msg)
			return auth.ErrLockedOut
		}
	}

	pin, confirm, err := in.ReadPINConfirm()
	if err != nil {
		return err
	}

	res := env.Auth.Enroll(ctx, pin, confirm)
	if !res.OK() {
		fmt.Fprintln(errOut, res.Message)
		return res.Err
	}
	fmt.Fprintf(out, "✓ %s\n", res.Message)
	return nil
}
