package availability

import "time"

// GridCells is the fixed size of a month grid: 6 full weeks. Months that
// fit in 5 weeks still get 6 so the rendered height never jumps.
const GridCells = 42

// GridCell is one cell of a month view.
type GridCell struct {
	Date           time.Time `json:"date"`
	IsCurrentMonth bool      `json:"is_current_month"`
}

// BuildGrid returns the 42-cell grid for (year, month). Cell 0 is the
// Sunday of the week containing the 1st; leading cells carry trailing days
// of the previous month and trailing cells the start of the next month.
// Total for any (year, month): out-of-range months normalize the way
// time.Date does.
func BuildGrid(year int, month time.Month) [GridCells]GridCell {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	start := first.AddDate(0, 0, -int(first.Weekday()))

	var cells [GridCells]GridCell
	for i := 0; i < GridCells; i++ {
		d := start.AddDate(0, 0, i)
		cells[i] = GridCell{
			Date:           d,
			IsCurrentMonth: d.Month() == first.Month() && d.Year() == first.Year(),
		}
	}
	return cells
}
