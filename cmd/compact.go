package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/illarion/pinlock/internal/store"
)

// Compact compacts the bbolt database to reclaim unused space
func Compact(ctx context.Context, opts Options) {
	run(ctx, opts, func(ctx context.Context, env *Env) error {
		return compact(ctx, env, os.Stdout)
	})
}

func compact(_ context.Context, env *Env, out io.Writer) error {
	db, ok := env.Store.(*store.Bolt)
	if !ok {
		return ErrNotCompactable
	}

	info, err := os.Stat(db.Path())
	if err != nil {
		return err
	}
	sizeBefore := info.Size()

	if err := db.Compact(); err != nil {
		return err
	}

	info, err = os.Stat(db.Path())
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(info.Size()))
	return nil
}

func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
	)

	switch {
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}
