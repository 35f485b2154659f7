// Package sound resolves alarm sound filenames against the audio directory
// the web application uploads into.
package sound
