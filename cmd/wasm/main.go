//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"syscall/js"

	"github.com/navmaint/drawboard/internal/asset"
	"github.com/navmaint/drawboard/internal/document"
	"github.com/navmaint/drawboard/internal/engine"
	"github.com/navmaint/drawboard/internal/export"
	"github.com/navmaint/drawboard/internal/render"
	"github.com/navmaint/drawboard/internal/store"
)

var (
	eng      *engine.Engine
	gateway  *store.Gateway
	pipeline *export.Pipeline
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	gateway = store.NewGateway(newLocalStorage(), store.DefaultKey)
	eng = engine.New(engine.Options{Scene: gateway.Load(context.Background())})
	w, h := eng.Size()
	pipeline = export.NewPipeline(w, h)

	// Create the engine API object
	api := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	api.Set("mount", js.FuncOf(mount))
	api.Set("unmount", js.FuncOf(unmount))
	api.Set("selectTool", js.FuncOf(selectTool))
	api.Set("pointerDown", js.FuncOf(pointerDown))
	api.Set("pointerMove", js.FuncOf(pointerMove))
	api.Set("pointerUp", js.FuncOf(pointerUp))
	api.Set("select", js.FuncOf(selectShape))
	api.Set("deleteSelected", js.FuncOf(deleteSelected))
	api.Set("updateMetadata", js.FuncOf(updateMetadata))
	api.Set("clearMetadata", js.FuncOf(clearMetadata))
	api.Set("setFill", js.FuncOf(setFill))
	api.Set("setStroke", js.FuncOf(setStroke))
	api.Set("setBackground", js.FuncOf(setBackground))
	api.Set("clearBackground", js.FuncOf(clearBackground))
	api.Set("setZoom", js.FuncOf(setZoom))
	api.Set("zoomIn", js.FuncOf(zoomIn))
	api.Set("zoomOut", js.FuncOf(zoomOut))
	api.Set("resetZoom", js.FuncOf(resetZoom))
	api.Set("loadScene", js.FuncOf(loadScene))
	api.Set("loadSampleScene", js.FuncOf(loadSampleScene))

	// --- Queries (frontend ← engine) ---
	api.Set("render", js.FuncOf(renderSVG))
	api.Set("getDisplayList", js.FuncOf(getDisplayList))
	api.Set("getScene", js.FuncOf(getScene))
	api.Set("getState", js.FuncOf(getState))
	api.Set("hitTest", js.FuncOf(hitTest))
	api.Set("exportDrawing", js.FuncOf(exportDrawing))

	// Register on global scope
	js.Global().Set("drawboardEngine", api)

	// Signal that WASM is ready
	js.Global().Set("drawboardWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

// persist saves the scene after a mutation.
func persist() {
	if !eng.TakeChanged() {
		return
	}
	if err := gateway.Save(context.Background(), eng.Scene()); err != nil {
		slog.Error("save scene", "error", err)
	}
}

func ok() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func fail(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": msg})
}

func point(args []js.Value) (render.Point, bool) {
	if len(args) < 2 {
		return render.Point{}, false
	}
	return render.Point{X: args[0].Float(), Y: args[1].Float()}, true
}

func shapeID(args []js.Value) (int64, bool) {
	if len(args) < 1 || args[0].Type() != js.TypeNumber {
		return 0, false
	}
	return int64(args[0].Float()), true
}

// --- Command Handlers ---

func mount(this js.Value, args []js.Value) interface{} {
	p, _ := point(args)
	eng.Mount(engine.Surface{Left: p.X, Top: p.Y})
	return nil
}

func unmount(this js.Value, args []js.Value) interface{} {
	eng.Unmount()
	return nil
}

func selectTool(this js.Value, args []js.Value) interface{} {
	name := ""
	if len(args) > 0 && args[0].Type() == js.TypeString {
		name = args[0].String()
	}
	t, err := engine.ParseTool(name)
	if err != nil {
		return fail(err.Error())
	}
	eng.SelectTool(t)
	return ok()
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	p, valid := point(args)
	if !valid {
		return nil
	}
	eng.PointerDown(p)
	persist()
	return nil
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	p, valid := point(args)
	if !valid {
		return js.ValueOf(false)
	}
	moved := eng.PointerMove(p)
	persist()
	return js.ValueOf(moved)
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	eng.PointerUp()
	return nil
}

func selectShape(this js.Value, args []js.Value) interface{} {
	id, _ := shapeID(args)
	if err := eng.Select(id); err != nil {
		return fail(err.Error())
	}
	return ok()
}

func deleteSelected(this js.Value, args []js.Value) interface{} {
	deleted := eng.DeleteSelected()
	persist()
	return js.ValueOf(deleted)
}

func updateMetadata(this js.Value, args []js.Value) interface{} {
	id, valid := shapeID(args)
	if !valid || len(args) < 2 {
		return fail("usage: updateMetadata(id, json)")
	}
	var md document.Metadata
	if err := json.Unmarshal([]byte(args[1].String()), &md); err != nil {
		return fail(err.Error())
	}
	if err := eng.UpdateMetadata(id, md); err != nil {
		return fail(err.Error())
	}
	persist()
	return ok()
}

func clearMetadata(this js.Value, args []js.Value) interface{} {
	id, _ := shapeID(args)
	if err := eng.ClearMetadata(id); err != nil {
		return fail(err.Error())
	}
	persist()
	return ok()
}

func setFill(this js.Value, args []js.Value) interface{} {
	id, valid := shapeID(args)
	if !valid || len(args) < 2 {
		return fail("usage: setFill(id, color)")
	}
	if err := eng.SetFill(id, args[1].String()); err != nil {
		return fail(err.Error())
	}
	persist()
	return ok()
}

func setStroke(this js.Value, args []js.Value) interface{} {
	id, valid := shapeID(args)
	if !valid || len(args) < 2 {
		return fail("usage: setStroke(id, color)")
	}
	if err := eng.SetStroke(id, args[1].String()); err != nil {
		return fail(err.Error())
	}
	persist()
	return ok()
}

// setBackground takes a data URL from a FileReader. Images that do not
// decode are reported and leave the canvas unchanged.
func setBackground(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail("missing data url")
	}
	dataURL := args[0].String()
	if _, _, err := asset.DecodeImage(dataURL); err != nil {
		slog.Error("import background", "error", err)
		return fail(err.Error())
	}
	eng.SetBackground(dataURL)
	persist()
	return ok()
}

func clearBackground(this js.Value, args []js.Value) interface{} {
	eng.ClearBackground()
	persist()
	return ok()
}

func setZoom(this js.Value, args []js.Value) interface{} {
	if len(args) > 0 {
		eng.SetZoom(args[0].Float())
	}
	return js.ValueOf(eng.Viewport().Zoom)
}

func zoomIn(this js.Value, args []js.Value) interface{} {
	eng.ZoomIn()
	return js.ValueOf(eng.Viewport().Zoom)
}

func zoomOut(this js.Value, args []js.Value) interface{} {
	eng.ZoomOut()
	return js.ValueOf(eng.Viewport().Zoom)
}

func resetZoom(this js.Value, args []js.Value) interface{} {
	eng.ResetZoom()
	return js.ValueOf(eng.Viewport().Zoom)
}

func loadScene(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail("missing scene JSON")
	}
	scene, err := document.Unmarshal([]byte(args[0].String()))
	if err != nil {
		return fail(err.Error())
	}
	eng.LoadScene(scene)
	if err := gateway.Save(context.Background(), eng.Scene()); err != nil {
		slog.Error("save scene", "error", err)
	}
	return ok()
}

func loadSampleScene(this js.Value, args []js.Value) interface{} {
	eng.LoadScene(document.NewSampleScene())
	if err := gateway.Save(context.Background(), eng.Scene()); err != nil {
		slog.Error("save scene", "error", err)
	}
	return ok()
}

// --- Query Handlers ---

func renderSVG(this js.Value, args []js.Value) interface{} {
	markup, err := eng.Render()
	if err != nil {
		slog.Error("render", "error", err)
		return js.ValueOf("")
	}
	return js.ValueOf(string(markup))
}

func getDisplayList(this js.Value, args []js.Value) interface{} {
	s, err := render.CommandsToJSON(eng.Display())
	if err != nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(s)
}

func getScene(this js.Value, args []js.Value) interface{} {
	data, err := document.Marshal(eng.Scene())
	if err != nil {
		return js.ValueOf("")
	}
	return js.ValueOf(string(data))
}

func getState(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.StateJSON())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	p, valid := point(args)
	if !valid {
		return js.ValueOf(0)
	}
	return js.ValueOf(float64(eng.HitTest(eng.DeviceToScene(p))))
}

// exportDrawing returns a Promise resolving to {data, fileName,
// contentType}. Rasterizing runs off the event loop.
func exportDrawing(this js.Value, args []js.Value) interface{} {
	name := "svg"
	if len(args) > 0 && args[0].Type() == js.TypeString {
		name = args[0].String()
	}
	scene := eng.Scene()

	executor := js.FuncOf(func(_ js.Value, pargs []js.Value) interface{} {
		resolve, reject := pargs[0], pargs[1]
		go func() {
			format, err := export.ParseFormat(name)
			if err != nil {
				reject.Invoke(err.Error())
				return
			}
			art, err := pipeline.Export(context.Background(), format, scene)
			if err != nil {
				slog.Error("export failed", "format", format, "error", err)
				reject.Invoke(err.Error())
				return
			}
			data := js.Global().Get("Uint8Array").New(len(art.Data))
			js.CopyBytesToJS(data, art.Data)
			resolve.Invoke(js.ValueOf(map[string]interface{}{
				"data":        data,
				"fileName":    art.FileName,
				"contentType": art.ContentType,
			}))
		}()
		return nil
	})
	defer executor.Release()
	return js.Global().Get("Promise").New(executor)
}
