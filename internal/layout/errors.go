package layout

import "errors"

// LayoutError sentinels (§7).
var (
	ErrDuplicateName = errors.New("layout: duplicate client name")
	ErrEdgeOverlap   = errors.New("layout: two clients occupy the same edge")
	ErrCycle         = errors.New("layout: cyclic client positioning")
	ErrUnknownClient = errors.New("layout: relative_to references an unknown client")
)
