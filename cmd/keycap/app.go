package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"tools.zach/dev/keycap/internal/config"
	"tools.zach/dev/keycap/internal/encode"
	"tools.zach/dev/keycap/internal/fontfetch"
	"tools.zach/dev/keycap/internal/glyph"
	"tools.zach/dev/keycap/internal/render"
)

// ///////////////////////////////////////////////
// App
// ///////////////////////////////////////////////

// app is a loaded config together with the renderer built from it. A new
// app is built on every config reload.
type app struct {
	cfg      *config.Config
	renderer *render.Renderer
	encoder  encode.PNG
}

// loadApp loads the config at cfgPath and registers its search fonts.
// Fonts that fail to load are logged and skipped.
func loadApp(dirs DataPaths, cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	enc, err := cfg.Encoder()
	if err != nil {
		return nil, err
	}

	fonts := glyph.NewRegistry()
	handles, err := fonts.LoadGlob(cfg.SearchPatterns()...)
	if err != nil {
		slog.Warn("some fonts failed to load", "error", err)
	}
	slog.Debug("fonts registered", "count", len(handles))

	r := render.New(fonts)
	r.Encoder = enc
	r.Fallback = cfg.FontRef(cfg.Fonts.Fallback)
	r.Fetcher = &fontfetch.Fetcher{}
	if cfg.Fonts.Cache {
		r.Fetcher.CacheDir = dirs.FontCache()
	}
	return &app{cfg: cfg, renderer: r, encoder: enc}, nil
}

// renderIcons renders the named icons to their output paths. Every icon is
// attempted; failures are joined.
func (a *app) renderIcons(ctx context.Context, names []string) (int, error) {
	var (
		done int
		errs []error
	)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		path, err := a.renderIcon(ctx, name)
		if err != nil {
			slog.Error("icon failed", "icon", name, "error", err)
			errs = append(errs, fmt.Errorf("icon %q: %w", name, err))
			continue
		}
		slog.Info("icon rendered", "icon", name, "path", path)
		done++
	}
	return done, errors.Join(errs...)
}

// renderIcon renders one configured icon and returns where it was written.
func (a *app) renderIcon(ctx context.Context, name string) (string, error) {
	icon, err := a.cfg.Icon(name)
	if err != nil {
		return "", err
	}
	img, err := a.renderer.RenderContext(ctx, icon)
	if err != nil {
		return "", err
	}
	path := a.cfg.OutputPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	if a.cfg.Output.Base64 {
		err = encode.SaveBase64(a.encoder, path, img)
	} else {
		err = encode.Save(a.encoder, path, img)
	}
	if err != nil {
		return "", err
	}
	return path, nil
}
