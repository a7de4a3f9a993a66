// Package render draws the particle field as soft point sprites.
//
// [Device] is the narrow slice of OpenGL the pipeline needs. Package gldevice
// implements it on a current go-gl context; tests use the recording fake in
// package rendertest.
//
// A [Pipeline] owns one program and two vertex buffers: positions, rewritten
// with a partial upload every frame the field moves, and colors, uploaded
// once per particle set:
//
//	p := render.NewPipeline(dev, render.DefaultOptions())
//	if err := p.Init(); err != nil { ... }
//	p.Allocate(store.Positions(), store.Colors())
//	p.UploadPositions(store.Positions())
//	p.Draw(store.Len(), width, height)
//	p.Release()
//
// Every pipeline method checks for release and context loss before it
// touches the device.
package render
