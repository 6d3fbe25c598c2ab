// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package movement

// Replay plays a preset path back in a loop.
type Replay struct {
	path   Path
	cursor int
	pos    Position
}

// NewReplay copies path so later changes by the caller cannot leak in.
// hold is reported for as long as the path is empty.
func NewReplay(path Path, hold Position) *Replay {
	return &Replay{path: append(Path(nil), path...), pos: hold}
}

func (r *Replay) Kind() Kind { return KindPresetPath }

// Next returns the point under the cursor and advances it, wrapping at the
// end. An empty path keeps the held position.
func (r *Replay) Next() Step {
	if len(r.path) == 0 {
		return Step{Position: r.pos}
	}
	r.pos = r.path[r.cursor]
	r.cursor = (r.cursor + 1) % len(r.path)
	return Step{Position: r.pos}
}

// Reset rewinds to the first point.
func (r *Replay) Reset() { r.cursor = 0 }

// Len is the number of points in the path.
func (r *Replay) Len() int { return len(r.path) }
