package segment

import "fmt"

// Kind names which phase of a tile's work a segment carries.
type Kind int

const (
	Init Kind = iota
	Load
	Compute
	Save
)

func (k Kind) String() string {
	switch k {
	case Init:
		return "Init"
	case Load:
		return "Load"
	case Compute:
		return "Compute"
	case Save:
		return "Save"
	default:
		return "?"
	}
}

// Key identifies a segment by its place in the compilation: layer, pipeline
// stage, partition within the layer, and kind. Lexicographic order on the
// four fields is the Backend's canonical traversal order.
type Key struct {
	Layer     uint32
	Stage     uint32
	Partition uint32
	Kind      Kind
}

// Less reports whether k sorts before other under the lexicographic
// (Layer, Stage, Partition, Kind) ordering.
func (k Key) Less(other Key) bool {
	if k.Layer != other.Layer {
		return k.Layer < other.Layer
	}
	if k.Stage != other.Stage {
		return k.Stage < other.Stage
	}
	if k.Partition != other.Partition {
		return k.Partition < other.Partition
	}
	return k.Kind < other.Kind
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%d/%d/%s", k.Layer, k.Stage, k.Partition, k.Kind)
}
