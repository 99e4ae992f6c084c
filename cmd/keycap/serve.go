package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"tools.zach/dev/keycap/internal/config"
	"tools.zach/dev/keycap/internal/encode"
	"tools.zach/dev/keycap/internal/ipc"
	"tools.zach/dev/keycap/internal/paths"
)

// ///////////////////////////////////////////////
// Render Protocol
// ///////////////////////////////////////////////

// renderRequest is the JSON payload of an OpRender frame. Name picks a
// configured icon to start from; every other field overrides it the same
// way an [icons.NAME] table overrides [defaults].
type renderRequest struct {
	Name string `json:"icon,omitempty"`
	config.IconConfig
}

// renderResponse is the JSON payload of an OpResult frame.
type renderResponse struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	PNG    string `json:"png"`
}

// handleRender decodes a render request, renders it, and returns the PNG
// as base64 inside a JSON response.
func (a *app) handleRender(ctx context.Context, payload []byte) ([]byte, error) {
	var req renderRequest
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}

	base := a.cfg.Defaults
	if req.Name != "" {
		ic, ok := a.cfg.Resolved(req.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", config.ErrUnknownIcon, req.Name)
		}
		base = ic
	}
	icon, err := base.Merge(req.IconConfig).Icon()
	if err != nil {
		return nil, err
	}
	icon.Font = a.cfg.FontRef(icon.Font)

	img, err := a.renderer.RenderContext(ctx, icon)
	if err != nil {
		return nil, err
	}
	s, err := encode.Base64(a.encoder, img)
	if err != nil {
		return nil, err
	}
	slog.Debug("render request served", "icon", req.Name, "text", icon.Text)
	return json.Marshal(renderResponse{Width: img.Width(), Height: img.Height(), PNG: s})
}

// ///////////////////////////////////////////////
// Serve
// ///////////////////////////////////////////////

// socketAddr returns the configured socket, or the platform default.
func socketAddr(dirs DataPaths, cfg *config.Config) string {
	if cfg.Serve.Socket != "" {
		return cfg.ResolvePath(cfg.Serve.Socket)
	}
	if runtime.GOOS == "windows" {
		return paths.PipeName
	}
	return dirs.Socket()
}

// runServe answers render requests on a local socket until ctx is
// canceled. Config changes apply to requests that arrive afterwards.
func runServe(ctx context.Context, args []string, stderr io.Writer) error {
	var common commonFlags
	fs := flag.NewFlagSet("keycap serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	dirs, cfgPath, err := common.resolve()
	if err != nil {
		return err
	}
	lock, err := acquireLock(dirs.Lock())
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	defer lock.Release()

	a, closeLog, err := startDaemon(dirs, cfgPath, stderr, "serve")
	if err != nil {
		return err
	}
	defer closeLog()

	ln, err := ipc.Listen(socketAddr(dirs, a.cfg))
	if err != nil {
		return err
	}

	var current atomic.Pointer[app]
	current.Store(a)
	srv := &ipc.Server{
		Handler: func(ctx context.Context, payload []byte) ([]byte, error) {
			return current.Load().handleRender(ctx, payload)
		},
		RequestTimeout: time.Duration(a.cfg.Serve.RequestTimeoutSeconds) * time.Second,
	}

	w, err := openWatcher(a.cfg, cfgPath)
	if err != nil {
		ln.Close()
		return err
	}
	defer w.Close()
	ctx, cancel := context.WithCancel(ctx)
	reloaded := make(chan struct{})
	go func() {
		defer close(reloaded)
		reloadLoop(ctx, w, dirs, cfgPath, current.Store)
	}()

	err = srv.Serve(ctx, ln)
	cancel()
	<-reloaded
	slog.Info("shutting down")
	if errors.Is(err, ipc.ErrServerClosed) {
		return nil
	}
	return err
}
