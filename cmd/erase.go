package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/illarion/pinlock/internal/auth"
)

// Erase removes the enrolled PIN. The secure key and the lockout state are
// kept, and erasing is refused while locked out.
func Erase(ctx context.Context, opts Options) {
	run(ctx, opts, func(ctx context.Context, env *Env) error {
		return erase(ctx, env, os.Stdout, os.Stderr)
	})
}

func erase(ctx context.Context, env *Env, out, errOut io.Writer) error {
	enrolled, err := env.enrolled()
	if err != nil {
		return err
	}
	if !enrolled {
		fmt.Fprintln(out, "No PIN enrolled, nothing to erase")
		return nil
	}

	if err := env.Auth.Forget(ctx); err != nil {
		if errors.Is(err, auth.ErrLockedOut) {
			msg, _ := env.Policy.StatusMessage(ctx)
			fmt.Fprintln(errOut, msg)
		}
		return err
	}
	fmt.Fprintln(out, "✓ PIN erased")
	return nil
}
