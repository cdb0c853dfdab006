package types

// EntityKind distinguishes what a drag gesture moved.
type EntityKind string

// Drag entity kinds.
const (
	KindList EntityKind = "LIST"
	KindCard EntityKind = "CARD"
)

// BoardDroppableID is the container id of the top-level list sequence.
const BoardDroppableID = "all-lists"

// Location is one end of a drag: a container and an index within it.
type Location struct {
	DroppableID string `json:"droppableId"`
	Index       int    `json:"index"`
}

// DragResult describes a completed drag gesture as reported by the gesture
// library. A nil Destination means the item was dropped outside any valid
// target and the gesture is cancelled.
type DragResult struct {
	DraggableID string     `json:"draggableId"`
	Type        EntityKind `json:"type"`
	Source      Location   `json:"source"`
	Destination *Location  `json:"destination,omitempty"`
}

// Cancelled reports whether the drag has no destination.
func (r DragResult) Cancelled() bool {
	return r.Destination == nil || r.Destination.DroppableID == ""
}

// SameContainer reports whether source and destination are the same container.
func (r DragResult) SameContainer() bool {
	return r.Destination != nil && r.Destination.DroppableID == r.Source.DroppableID
}
