// Package mapio reads and writes occupancy maps in the map_server layout:
// a YAML metadata file next to a grayscale PGM or PNG image.
//
// Only the trinary interpretation is supported. Each pixel is turned into
// an occupancy probability (dark is occupied unless negate is set) and
// thresholded into occupied (100), free (0) or unknown (-1).
package mapio
