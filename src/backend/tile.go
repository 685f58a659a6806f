package backend

import "github.com/rajivbishwokarma/tensil/src/segment"

// tile groups the up-to-four segment kinds sharing one (layer, stage,
// partition) into a single overlay unit, plus the hardware thread id
// assigned to it in creation order.
type tile struct {
	layer, stage, partition uint32
	tid                     uint32
	init, load, compute, save *segment.Segment
}

type groupKey struct {
	layer, stage, partition uint32
}

type layerStage struct {
	layer, stage uint32
}

// buildTiles groups the Backend's finalized segments into ordered tiles,
// propagates each layer/stage's partition-0 Init segment to the partitions
// below the thread count, pads the sequence with W-1 empty tiles on both
// ends, and assigns thread ids round-robin over the padded sequence.
func (b *Backend) buildTiles(W int) ([]*tile, error) {
	groups := map[groupKey]*tile{}
	var order []groupKey

	for _, key := range b.sortedKeys() {
		gk := groupKey{key.Layer, key.Stage, key.Partition}
		t, ok := groups[gk]
		if !ok {
			t = &tile{layer: key.Layer, stage: key.Stage, partition: key.Partition}
			groups[gk] = t
			order = append(order, gk)
		}
		seg := b.segments[key]
		switch key.Kind {
		case segment.Init:
			t.init = seg
		case segment.Load:
			t.load = seg
		case segment.Compute:
			t.compute = seg
		case segment.Save:
			t.save = seg
		}
	}

	T := uint32(b.layout.NumberOfThreads)
	initByLayerStage := map[layerStage]*segment.Segment{}
	for _, gk := range order {
		if gk.partition == 0 {
			if t := groups[gk]; t.init != nil {
				initByLayerStage[layerStage{gk.layer, gk.stage}] = t.init
			}
		}
	}
	for _, gk := range order {
		t := groups[gk]
		if t.init != nil || gk.partition == 0 || gk.partition >= T {
			continue
		}
		if initSeg, ok := initByLayerStage[layerStage{gk.layer, gk.stage}]; ok {
			t.init = initSeg
		}
	}

	tiles := make([]*tile, 0, len(order)+2*(W-1))
	for i := 0; i < W-1; i++ {
		tiles = append(tiles, &tile{})
	}
	for _, gk := range order {
		tiles = append(tiles, groups[gk])
	}
	for i := 0; i < W-1; i++ {
		tiles = append(tiles, &tile{})
	}

	var nextTid uint32
	for _, t := range tiles {
		t.tid = nextTid
		nextTid = (nextTid + 1) % T
	}

	return tiles, nil
}
