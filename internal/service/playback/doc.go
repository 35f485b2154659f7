// Package playback renders a sound file audibly through the first available
// external player.
//
// Candidates are command templates tried in priority order; the chosen one is
// started detached and never awaited, so a slow or hanging player cannot
// block a tick. The sound path is always a single argv element and no shell
// is involved.
package playback
