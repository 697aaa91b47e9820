package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/illarion/pinlock/internal/store"
)

// Status shows enrollment and lockout state. No PIN is required.
func Status(ctx context.Context, opts Options) {
	run(ctx, opts, func(ctx context.Context, env *Env) error {
		return status(ctx, env, os.Stdout)
	})
}

func status(ctx context.Context, env *Env, out io.Writer) error {
	cfg := env.Config

	fmt.Fprintf(out, "Backend:         %s\n", cfg.Store.Backend)
	if db, ok := env.Store.(*store.Bolt); ok {
		created, err := db.Created()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Database:        %s (created %s)\n", db.Path(), created.Local().Format(time.RFC3339))
	}

	enrolled, err := env.enrolled()
	if err != nil {
		return err
	}
	if enrolled {
		fmt.Fprintf(out, "Enrolled:        yes (%d-digit PIN)\n", cfg.PIN.Digits)
	} else {
		fmt.Fprintln(out, "Enrolled:        no")
	}

	st := env.Policy.State(ctx)
	fmt.Fprintf(out, "Failed attempts: %d/%d\n", st.FailedAttempts, env.Policy.MaxAttempts())

	if env.Policy.IsLockedOut(ctx) {
		fmt.Fprintf(out, "Locked out:      yes, until %s (%d min remaining)\n",
			st.LockoutUntil.Local().Format(time.Kitchen), env.Policy.RemainingLockoutMinutes(ctx))
	} else {
		fmt.Fprintln(out, "Locked out:      no")
	}
	if cfg.Lockout.Bypass {
		fmt.Fprintln(out, "Warning:         lockout bypass is enabled")
	}
	return nil
}
