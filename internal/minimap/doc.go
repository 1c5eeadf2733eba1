// Package minimap turns Tiled maps into stylized minimap thumbnails.
//
// A render is three external program runs: the map rasterizer draws the
// map at a small scale, then the image processor extracts an edge map
// from that raster and dissolves it back over the raster to give the
// thumbnail cell-shaded outlines. Driver sequences renders for a batch of
// map names and turns their outcomes into a process exit status.
package minimap
