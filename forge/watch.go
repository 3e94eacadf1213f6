package forge

import (
	"context"
	"time"

	"github.com/reqsmith/reqsmith/watch"
)

// Watch runs the drop-folder mode: every .reqifz that lands under dir is
// processed after the debounce window. Per-file failures are logged and the
// batch continues, matching ProcessBatch containment. Blocks until ctx is
// cancelled.
func (f *Forge) Watch(ctx context.Context, dir string, debounce time.Duration) error {
	w, err := watch.New(dir, watch.Options{
		Debounce: debounce,
		Logger:   f.logger,
	})
	if err != nil {
		return err
	}

	return w.Run(ctx, func(paths []string) error {
		for _, p := range paths {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := f.ProcessFile(ctx, p); err != nil {
				f.logger.Error("watched file failed", "path", p, "error", err)
			}
		}
		return nil
	})
}
