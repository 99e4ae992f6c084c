package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"tools.zach/dev/keycap/internal/logger"
)

// ///////////////////////////////////////////////
// Batch
// ///////////////////////////////////////////////

// runBatch renders every icon in the config (or those matching -only) once.
func runBatch(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		common commonFlags
		only   string
	)
	fs := flag.NewFlagSet("keycap batch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	common.register(fs)
	fs.StringVar(&only, "only", "", "render only icons whose name matches this glob, e.g. 'scene-*'")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dirs, cfgPath, err := common.resolve()
	if err != nil {
		return err
	}
	slog.SetDefault(logger.NewConsole(stderr, logger.LevelWarn))

	a, err := loadApp(dirs, cfgPath)
	if err != nil {
		return err
	}
	slog.SetDefault(logger.NewConsole(stderr, logger.ParseLevel(a.cfg.Log.Level)))

	names, err := a.cfg.Select(only)
	if err != nil {
		return err
	}
	n, err := a.renderIcons(ctx, names)
	fmt.Fprintf(stdout, "Rendered %d of %d icons to '%s'\n", n, len(names), a.cfg.ResolvePath(a.cfg.Output.Dir))
	return err
}
