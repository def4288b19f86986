package main

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"oss.terrastruct.com/connectlines"
)

func TestWatchLifecycle(t *testing.T) {
	t.Parallel()

	_, layoutPath, connectionsPath := writeTestInputs(t)
	ms, _, stderr := testState()
	ms.Env.Setenv("BROWSER", "0")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := newWatcher(ctx, ms, watcherOpts{
		inputs: inputs{
			layoutPath:      layoutPath,
			connectionsPath: connectionsPath,
			options:         &connectlines.Options{},
			strokeWidth:     2,
		},
		host:          "localhost",
		port:          "0",
		frameInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		errc <- w.run()
	}()

	readCtx, readCancel := context.WithTimeout(ctx, 10*time.Second)
	defer readCancel()
	c, _, err := websocket.Dial(readCtx, fmt.Sprintf("ws://%s/watch", w.l.Addr()), nil)
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	var res watchResult
	require.NoError(t, wsjson.Read(readCtx, c, &res))
	assert.Empty(t, res.Err)
	assert.Contains(t, res.SVG, `d="M 100 25 L 300 25"`)
	assert.Contains(t, res.SVG, `d="M 50 50 L 50 150"`)

	// A broken edit is reported to the page and the previous overlay is kept.
	require.NoError(t, os.WriteFile(connectionsPath, []byte(`[{"element": {"id": "a"}, "connectWith": [{"target": {"id": "b"}, "edge": "up"}]}]`), 0644))
	for res.Err == "" {
		res = watchResult{}
		require.NoError(t, wsjson.Read(readCtx, c, &res))
	}
	assert.Contains(t, res.Err, "failed to reload")
	assert.Contains(t, res.Err, `unknown edge "up"`)

	require.NoError(t, wsjson.Write(readCtx, c, clientEvent{Type: "pointerdown", ID: "a"}))
	c.CloseRead(context.Background())

	var (
		listeners, observers int
		interacting          bool
		watched              []string
	)
	require.Eventually(t, func() bool {
		err := w.loop.Do(readCtx, func() {
			listeners = w.signals.Listeners()
			observers = w.signals.Observers()
			watched = w.pipeline.Scheduler().Watched()
			interacting = w.pipeline.Scheduler().Interacting()
		})
		return err == nil && interacting
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 3, listeners)
	assert.Equal(t, 1, observers)
	assert.ElementsMatch(t, []string{"#a", "#b", "#c"}, watched)

	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(30 * time.Second):
		t.Fatalf("watcher did not stop: %s", stderr.String())
	}

	// Teardown released everything the pipeline acquired.
	assert.Zero(t, w.signals.Listeners())
	assert.Zero(t, w.signals.Observers())
	assert.Empty(t, w.signals.Observed())
	assert.Empty(t, w.pipeline.Scheduler().Watched())
	assert.False(t, w.pipeline.Scheduler().Pending())
	assert.False(t, w.pipeline.Scheduler().Interacting())
	for _, key := range []string{"#a", "#b", "#c"} {
		assert.Zero(t, w.doc.ListenerCount(key), key)
	}
}
