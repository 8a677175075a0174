package main

import "strings"

// renderScope draws samples as a height x width dot plot, 255 at the top.
func renderScope(vals []uint8, width, height int) string {
	if width < 1 || height < 1 {
		return ""
	}
	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}
	if len(vals) > 0 {
		for x := 0; x < width; x++ {
			v := int(vals[x*len(vals)/width])
			row := (255 - v) * (height - 1) / 255
			grid[row][x] = '•'
		}
	}
	lines := make([]string, height)
	for i, row := range grid {
		lines[i] = string(row)
	}
	return strings.Join(lines, "\n")
}

// renderLevel draws a single line level meter for the plain front end.
func renderLevel(vals []float32, width int) string {
	if width < 1 {
		return ""
	}
	peak := float32(0)
	for _, v := range vals {
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	n := int(peak * float32(width))
	if n > width {
		n = width
	}
	return strings.Repeat("#", n) + strings.Repeat(".", width-n)
}
