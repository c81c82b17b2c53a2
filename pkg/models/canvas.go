package models

// CanvasState is the free-form editor snapshot of a flow. It is
// presentation only: once canonical Operations/Connections exist the
// canvas is never consulted for execution.
type CanvasState struct {
	Nodes    []CanvasNode `json:"nodes"`
	Edges    []CanvasEdge `json:"edges"`
	Viewport Viewport     `json:"viewport"`
}

// CanvasNode mirrors the visual editor's node shape. Data carries the
// operation key and options for non-trigger nodes.
type CanvasNode struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Label    string         `json:"label,omitempty"`
	Position Position       `json:"position"`
	Data     map[string]any `json:"data,omitempty"`
}

// CanvasEdge mirrors the visual editor's edge shape.
type CanvasEdge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	SourceHandle string `json:"source_handle,omitempty"`
	Target       string `json:"target"`
	TargetHandle string `json:"target_handle,omitempty"`
	Label        string `json:"label,omitempty"`
}

// Viewport is the editor's pan/zoom state.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}
