// Package compositor keeps a client-side tree of display nodes and a host
// visual tree consistent through batched transactions.
//
// Client code builds and mutates a [DisplayNode] tree from any goroutine.
// Nothing touches the host in-line: every change is recorded as a
// transaction and applied by [Compositor.Dispatch] in one host batch, in a
// fixed phase order:
//
//  1. sub-transactions (host element creation and free-form work)
//  2. movements, in the order they were enqueued
//  3. properties, coalesced so only the last write of each property lands
//  4. animations, handed to the host timeline
//
// # Quick start
//
// The reference host is [Scene], a retained tree of [Visual] elements drawn
// with [Ebitengine] and animated with [gween]. [Run] opens a window for it:
//
//	scene := compositor.NewScene()
//	comp, _ := compositor.CreateCompositor(scene, compositor.CompositionModeDefault)
//	defer comp.Close()
//
//	root := comp.NewRootNode()
//	root.Get().AddToRoot()
//
//	box := comp.NewNode(compositor.NodeSimple)
//	box.Get().SetProperty(compositor.PropWidth, 80)
//	box.Get().SetProperty(compositor.PropHeight, 40)
//	box.Get().SetBackgroundColor(0.3, 0.7, 1, 1)
//	root.Get().AddSubnode(box.Get(), nil, nil)
//
//	compositor.Run(comp, scene, compositor.RunConfig{Title: "demo", Width: 640, Height: 480})
//
// In [CompositionModeLibrary] the embedding application calls Dispatch
// itself; [Compositor.Tick] then only advances the host.
//
// # Ownership
//
// Nodes, textures and animations are reference counted. A [Ref] is an owning
// handle; parents own their subnodes, nodes own their texture and their
// attached animations. An object is destroyed the moment its last reference
// is dropped, and a destroyed node's host elements are torn down at the
// next dispatch.
//
// # Host context
//
// Every [Host] call runs on a single goroutine owned by the compositor.
// Use [Compositor.RunOnHost] to read or drive the host directly.
//
// [Ebitengine]: https://ebitengine.org
// [gween]: https://github.com/tanema/gween
package compositor
