package main

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"cdr.dev/slog"
	"github.com/fsnotify/fsnotify"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"oss.terrastruct.com/connectlines"
	"oss.terrastruct.com/connectlines/clresolve"
	"oss.terrastruct.com/connectlines/clschedule"
	"oss.terrastruct.com/connectlines/clsvg"
	"oss.terrastruct.com/connectlines/cltarget"
	"oss.terrastruct.com/connectlines/lib/geo"
	"oss.terrastruct.com/connectlines/lib/log"
	"oss.terrastruct.com/connectlines/lib/xbrowser"
	"oss.terrastruct.com/connectlines/lib/xhttp"
	"oss.terrastruct.com/connectlines/lib/xmain"
)

//go:embed static
var staticFS embed.FS

type watcherOpts struct {
	inputs
	host          string
	port          string
	frameInterval time.Duration
}

type watcher struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	ms *xmain.State
	watcherOpts

	reloadCh chan struct{}

	fw               *fsnotify.Watcher
	l                net.Listener
	staticFileServer http.Handler

	// Everything below loop is only touched from callbacks running on it.
	loop          *clschedule.Loop
	signals       *clschedule.Signals
	doc           *clresolve.Document
	pipeline      *connectlines.Pipeline
	elements      []cltarget.ConnectElement
	layoutVersion int
	opened        bool

	wsclientsMu sync.Mutex
	closing     bool
	wsclientsWG sync.WaitGroup
	wsclients   map[*wsclient]struct{}

	errMu sync.Mutex
	err   error

	resMu sync.Mutex
	res   *watchResult
}

// watchResult is pushed to every browser after each recompute.
type watchResult struct {
	SVG           string `json:"svg"`
	Pass          uint64 `json:"pass"`
	LayoutVersion int    `json:"layoutVersion"`
	Err           string `json:"err"`
}

// clientEvent is a layout signal reported by a browser.
type clientEvent struct {
	Type string   `json:"type"`
	ID   string   `json:"id,omitempty"`
	Rect *geo.Box `json:"rect,omitempty"`
}

func newWatcher(ctx context.Context, ms *xmain.State, opts watcherOpts) (*watcher, error) {
	ctx, cancel := context.WithCancel(ctx)

	w := &watcher{
		ctx:    ctx,
		cancel: cancel,

		ms:          ms,
		watcherOpts: opts,

		reloadCh:  make(chan struct{}, 1),
		wsclients: make(map[*wsclient]struct{}),
	}
	err := w.init()
	if err != nil {
		cancel()
		return nil, err
	}
	return w, nil
}

func (w *watcher) init() error {
	doc, elements, err := load(w.ms, w.inputs)
	if err != nil {
		return err
	}
	w.doc = doc
	w.elements = elements

	w.loop = clschedule.NewLoop()
	w.signals = clschedule.NewSignals()
	frames := clschedule.NewTickerFrames(w.loop, w.frameInterval)
	w.pipeline = connectlines.NewPipeline(w.ctx, w.doc, frames, w.signals, w.options)
	w.pipeline.OnUpdate = w.onUpdate

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fw = fw

	sfs, err := fs.Sub(staticFS, "static")
	if err != nil {
		return err
	}
	w.staticFileServer = http.FileServer(http.FS(sfs))
	return w.listen()
}

func (w *watcher) run() error {
	defer w.close()

	w.goFunc(w.loop.Run)
	w.goFunc(w.watchLoop)
	w.goFunc(w.reloadLoop)
	w.loop.Post(func() {
		w.pipeline.SetElements(w.elements)
		w.pipeline.Start()
	})

	w.goServe()

	w.wg.Wait()
	w.close()
	return w.err
}

func (w *watcher) close() {
	w.wsclientsMu.Lock()
	if w.closing {
		w.wsclientsMu.Unlock()
		return
	}
	w.closing = true
	w.wsclientsMu.Unlock()

	w.cancel()
	// Every goroutine has returned, the loop included, so nothing else owns
	// the pipeline.
	w.pipeline.Close()
	if w.fw != nil {
		err := w.fw.Close()
		w.setErr(err)
	}
	if w.l != nil {
		err := w.l.Close()
		w.setErr(err)
	}

	w.wsclientsWG.Wait()
}

func (w *watcher) setErr(err error) {
	w.errMu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.errMu.Unlock()
}

func (w *watcher) goFunc(fn func(context.Context) error) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.cancel()

		err := fn(w.ctx)
		w.setErr(err)
	}()
}

// watchLoop requests a reload once a burst of file system events on either
// input settles. Watches are re-added after every event since editors often
// replace files instead of writing them in place.
func (w *watcher) watchLoop(ctx context.Context) error {
	paths := []string{w.layoutPath, w.connectionsPath}
	lastModified := make(map[string]time.Time)
	for _, p := range paths {
		mt, err := w.ensureAddWatch(ctx, p)
		if err != nil {
			return err
		}
		lastModified[p] = mt
	}

	eatBurstTimer := time.NewTimer(0)
	<-eatBurstTimer.C
	pollTicker := time.NewTicker(time.Second * 10)
	defer pollTicker.Stop()

	changed := make(map[string]struct{})

	for {
		select {
		case <-pollTicker.C:
			// Catches changes whose events were never delivered.
			missedChanges := false
			for _, p := range paths {
				mt, err := w.ensureAddWatch(ctx, p)
				if err != nil {
					return err
				}
				if !mt.Equal(lastModified[p]) {
					missedChanges = true
					lastModified[p] = mt
				}
			}
			if missedChanges {
				w.requestReload()
			}
		case ev, ok := <-w.fw.Events:
			if !ok {
				return errors.New("fsnotify watcher closed")
			}
			w.ms.Log.Debug.Printf("received file system event %v", ev)
			mt, err := w.ensureAddWatch(ctx, ev.Name)
			if err != nil {
				return err
			}
			if ev.Op == fsnotify.Chmod {
				if mt.Equal(lastModified[ev.Name]) {
					continue
				}
				lastModified[ev.Name] = mt
			}
			changed[ev.Name] = struct{}{}
			// Writers emit several events per logical edit. Wait for them to
			// settle so a half written file is never loaded.
			eatBurstTimer.Reset(time.Millisecond * 16)
		case <-eatBurstTimer.C:
			var changedList []string
			for k := range changed {
				changedList = append(changedList, w.ms.HumanPath(k))
				delete(changed, k)
			}
			sort.Strings(changedList)
			w.ms.Log.Info.Printf("detected change in %v: recomputing...", changedList)
			w.requestReload()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return errors.New("fsnotify watcher closed")
			}
			w.ms.Log.Error.Printf("fsnotify error: %v", err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *watcher) requestReload() {
	select {
	case w.reloadCh <- struct{}{}:
	default:
	}
}

func (w *watcher) ensureAddWatch(ctx context.Context, path string) (time.Time, error) {
	interval := time.Millisecond * 16
	tc := time.NewTimer(0)
	<-tc.C
	for {
		mt, err := w.addWatch(path)
		if err == nil {
			return mt, nil
		}
		if interval >= time.Second {
			w.ms.Log.Error.Printf("failed to watch %q: %v (retrying in %v)", w.ms.HumanPath(path), err, interval)
		}

		tc.Reset(interval)
		select {
		case <-tc.C:
			if interval < time.Second {
				interval = time.Second
			}
			if interval < time.Second*16 {
				interval *= 2
			}
		case <-ctx.Done():
			return time.Time{}, ctx.Err()
		}
	}
}

func (w *watcher) addWatch(path string) (time.Time, error) {
	err := w.fw.Add(path)
	if err != nil {
		return time.Time{}, err
	}
	d, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return d.ModTime(), nil
}

func (w *watcher) reloadLoop(ctx context.Context) error {
	for {
		select {
		case <-w.reloadCh:
		case <-ctx.Done():
			return ctx.Err()
		}

		layout, err := os.ReadFile(w.layoutPath)
		var elements []cltarget.ConnectElement
		if err == nil {
			var connections []byte
			connections, err = os.ReadFile(w.connectionsPath)
			if err == nil {
				elements, err = cltarget.ParseElements(connections)
			}
		}
		if err == nil {
			doErr := w.loop.Do(ctx, func() {
				err = w.apply(layout, elements)
			})
			if doErr != nil {
				return doErr
			}
		}
		if err != nil {
			err = fmt.Errorf("failed to reload: %w", err)
			log.Warn(ctx, "keeping previous layout", slog.Error(err))
			w.broadcast(&watchResult{Err: err.Error()})
		}
	}
}

// apply swaps in reloaded inputs. Elements whose rectangle moved are reported
// the way a browser reports element resizes.
func (w *watcher) apply(layout []byte, elements []cltarget.ConnectElement) error {
	changed, err := w.doc.Replace(bytes.NewReader(layout))
	if err != nil {
		return err
	}
	w.layoutVersion++
	if len(changed) > 0 {
		log.Debug(w.ctx, "layout changed", slog.F("elements", changed))
		w.signals.FireElementResize(changed...)
	}
	w.elements = elements
	w.pipeline.SetElements(elements)
	return nil
}

func (w *watcher) onUpdate(snapshot *cltarget.Snapshot) {
	svg := clsvg.Render(snapshot, &clsvg.RenderOpts{StrokeWidth: &w.strokeWidth})
	w.broadcast(&watchResult{
		SVG:           string(svg),
		Pass:          snapshot.Pass,
		LayoutVersion: w.layoutVersion,
	})

	if !w.opened {
		w.opened = true
		url := fmt.Sprintf("http://%s", w.l.Addr())
		go func() {
			err := xbrowser.OpenURL(w.ctx, w.ms.Env, url)
			if err != nil {
				w.ms.Log.Warn.Printf("failed to open browser to %v: %v", url, err)
			}
		}()
	}
}

func (w *watcher) handleEvent(ev clientEvent) {
	key := "#" + ev.ID
	switch ev.Type {
	case "resize":
		w.signals.FireViewportResize()
	case "scroll":
		w.signals.FireViewportScroll()
	case "elementresize":
		if ev.Rect != nil && w.doc.SetRect(key, ev.Rect) {
			w.signals.FireElementResize(key)
		}
	case "pointerdown":
		w.doc.Dispatch(key, clresolve.PointerDown)
	case "pointermove":
		if ev.Rect != nil {
			w.doc.SetRect(key, ev.Rect)
		}
		w.doc.Dispatch(key, clresolve.PointerMove)
	case "pointerup":
		if ev.ID == "" {
			w.signals.FirePointerUp()
		} else {
			w.doc.Dispatch(key, clresolve.PointerUp)
		}
	default:
		log.Debug(w.ctx, "ignoring client event", slog.F("type", ev.Type))
	}
}

func (w *watcher) listen() error {
	l, err := net.Listen("tcp", net.JoinHostPort(w.host, w.port))
	if err != nil {
		return err
	}
	w.l = l
	w.ms.Log.Success.Printf("listening on http://%v", w.l.Addr())
	return nil
}

func (w *watcher) goServe() {
	m := http.NewServeMux()
	m.HandleFunc("/", w.handleRoot)
	m.Handle("/layout", xhttp.HandlerFuncAdapter{Log: w.ms.Log, Func: w.handleLayout})
	m.Handle("/static/", http.StripPrefix("/static", w.staticFileServer))
	m.Handle("/watch", xhttp.HandlerFuncAdapter{Log: w.ms.Log, Func: w.handleWatch})

	s := xhttp.NewServer(w.ms.Log.Warn, xhttp.Log(w.ms.Log, m))
	w.goFunc(func(ctx context.Context) error {
		return xhttp.Serve(ctx, time.Second*30, s, w.l)
	})
}

func (w *watcher) getRes() *watchResult {
	w.resMu.Lock()
	defer w.resMu.Unlock()
	return w.res
}

func (w *watcher) handleRoot(hw http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(hw, r)
		return
	}
	hw.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(hw, `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>%s</title>
	<script src="/static/watch.js"></script>
	<link rel="stylesheet" href="/static/watch.css">
</head>
<body>
	<div id="cl-err" style="display: none"></div>
	<div id="cl-layout"></div>
	<div id="cl-overlay"></div>
</body>
</html>`, filepath.Base(w.layoutPath))
}

func (w *watcher) handleLayout(hw http.ResponseWriter, r *http.Request) error {
	var html string
	var err error
	doErr := w.loop.Do(r.Context(), func() {
		html, err = w.doc.HTML()
	})
	if doErr != nil {
		return xhttp.Errorf(http.StatusServiceUnavailable, "server shutting down...", "%v", doErr)
	}
	if err != nil {
		return err
	}
	hw.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err = hw.Write([]byte(html))
	return err
}

func (w *watcher) handleWatch(hw http.ResponseWriter, r *http.Request) error {
	w.wsclientsMu.Lock()
	if w.closing {
		w.wsclientsMu.Unlock()
		return xhttp.Errorf(http.StatusServiceUnavailable, "server shutting down...", "server shutting down...")
	}
	w.wsclientsWG.Add(1)
	w.wsclientsMu.Unlock()

	c, err := websocket.Accept(hw, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		w.wsclientsWG.Done()
		return err
	}

	go func() {
		defer w.wsclientsWG.Done()
		defer c.Close(websocket.StatusInternalError, "the sky is falling")

		ctx, cancel := context.WithTimeout(w.ctx, time.Hour)
		defer cancel()

		cl := &wsclient{
			w:         w,
			resultsCh: make(chan struct{}, 1),
			c:         c,
		}

		w.wsclientsMu.Lock()
		w.wsclients[cl] = struct{}{}
		w.wsclientsMu.Unlock()
		defer func() {
			w.wsclientsMu.Lock()
			delete(w.wsclients, cl)
			w.wsclientsMu.Unlock()
		}()

		go func() {
			defer cancel()
			_ = cl.readLoop(ctx)
		}()
		go wsHeartbeat(ctx, cl.c)
		_ = cl.writeLoop(ctx)
	}()
	return nil
}

type wsclient struct {
	w         *watcher
	resultsCh chan struct{}
	c         *websocket.Conn
}

// readLoop feeds browser events to the loop until the connection closes.
func (cl *wsclient) readLoop(ctx context.Context) error {
	for {
		var ev clientEvent
		err := wsjson.Read(ctx, cl.c, &ev)
		if err != nil {
			return err
		}
		if !cl.w.loop.Post(func() { cl.w.handleEvent(ev) }) {
			return context.Canceled
		}
	}
}

func (cl *wsclient) writeLoop(ctx context.Context) error {
	for {
		res := cl.w.getRes()
		if res != nil {
			err := cl.write(ctx, res)
			if err != nil {
				return err
			}
		}

		select {
		case <-cl.resultsCh:
		case <-ctx.Done():
			cl.c.Close(websocket.StatusGoingAway, "server shutting down...")
			return ctx.Err()
		}
	}
}

func (cl *wsclient) write(ctx context.Context, res *watchResult) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	return wsjson.Write(ctx, cl.c, res)
}

func (w *watcher) broadcast(res *watchResult) {
	w.resMu.Lock()
	w.res = res
	w.resMu.Unlock()

	w.wsclientsMu.Lock()
	defer w.wsclientsMu.Unlock()
	w.ms.Log.Debug.Printf("broadcasting pass %d to %d client%s", res.Pass, len(w.wsclients), plural(len(w.wsclients)))
	for cl := range w.wsclients {
		select {
		case cl.resultsCh <- struct{}{}:
		default:
		}
	}
}

func wsHeartbeat(ctx context.Context, c *websocket.Conn) {
	defer c.Close(websocket.StatusInternalError, "the sky is falling")

	t := time.NewTimer(0)
	<-t.C
	for {
		err := c.Ping(ctx)
		if err != nil {
			return
		}

		t.Reset(time.Second * 30)
		select {
		case <-t.C:
		case <-ctx.Done():
			return
		}
	}
}
