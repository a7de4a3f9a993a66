// Package engine owns one particle field from first load to dispose.
//
// An [Engine] holds the render pipeline, the particle store and the pointer
// tracker. Hosts feed it input and resize notifications from any goroutine
// and call [Engine.Frame] once per display refresh on the thread that owns
// the GPU context:
//
//	eng := engine.New(dev, cfg, log)
//	if err := eng.Start(); err != nil { ... }
//	<-eng.Load("logo.png")
//	for !window.ShouldClose() {
//		eng.Frame(dt)
//	}
//	eng.Dispose()
//
// Image loads run on their own goroutine. A newer Load cancels the older one
// and the frame thread only ever applies the newest result, so GPU buffers
// are touched from a single thread.
//
// A nil device runs the field headless: physics, loads and stats work, but
// nothing is drawn. The monitor, bench and script commands use this mode.
package engine
