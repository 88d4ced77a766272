// Package render draws the game as text.
//
// Rendering is a pure function of a View: the latest snapshot, the local
// mode, and the surrounding session state. Nothing in this package mutates
// the session. The playfield is the server's 20x10 grid; each grid cell is
// drawn as CellWidth characters.
//
//	r := render.NewRenderer(render.RendererConfig{})
//	r.RenderToWriter(os.Stdout, view)
package render
