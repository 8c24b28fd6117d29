package views

import "strings"

// window returns the lines of content visible at scrollY within height rows,
// along with the clamped offset and the total line count.
func window(content string, scrollY, height int) (string, int, int) {
	if height < 1 {
		height = 1
	}
	lines := strings.Split(content, "\n")
	total := len(lines)

	scrollY = min(scrollY, total-height)
	scrollY = max(scrollY, 0)
	end := min(scrollY+height, total)

	return strings.Join(lines[scrollY:end], "\n"), scrollY, total
}
