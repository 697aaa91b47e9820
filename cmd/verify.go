package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/illarion/pinlock/internal/auth"
)

// Verify asks for the PIN and checks it against the lockout policy and the
// enrolled credential. The process exits non-zero unless it matches.
func Verify(ctx context.Context, opts Options) {
	run(ctx, opts, func(ctx context.Context, env *Env) error {
		return verify(ctx, env, defaultPINReader(), os.Stdout, os.Stderr)
	})
}

func verify(ctx context.Context, env *Env, in PINReader, out, errOut io.Writer) error {
	enrolled, err := env.enrolled()
	if err != nil {
		return err
	}
	if !enrolled {
		return ErrNotEnrolled
	}

	// Report a lockout before asking for a PIN nobody can use.
	if env.Policy.IsLockedOut(ctx) && !env.Config.Lockout.Bypass {
		msg, _ := env.Policy.StatusMessage(ctx)
		fmt.Fprintln(errOut, msg)
		return auth.ErrLockedOut
	}

	pin, err := in.ReadPIN(fmt.Sprintf("Enter your %d-digit PIN: ", env.Config.PIN.Digits))
	if err != nil {
		return err
	}

	res := env.Auth.Authenticate(ctx, pin)
	if !res.OK() {
		fmt.Fprintln(errOut, res.Message)
		return res.Err
	}
	fmt.Fprintln(out, "✓ PIN accepted")
	return nil
}
