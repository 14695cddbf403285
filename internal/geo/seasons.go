package geo

// Window is a month-day span within a single year, inclusive on both ends.
// Bounds are "MM-DD" strings so membership checks reduce to lexical
// comparison of a formatted date.
type Window struct {
	Name  string
	Start string
	End   string
}

// SeasonWindows partitions the year into supply-load seasons. Order matters:
// payloads list seasonal aggregates in this sequence.
var SeasonWindows = []Window{
	{Name: "heating_peak", Start: "01-01", End: "03-31"},
	{Name: "spring_transition", Start: "04-01", End: "05-15"},
	{Name: "summer_load", Start: "05-16", End: "08-31"},
	{Name: "autumn_transition", Start: "09-01", End: "10-31"},
	{Name: "winter_preparation", Start: "11-01", End: "12-31"},
}

// PhaseWindows are the agronomic growth phases the trained yield model was
// fitted on. The phase names feed the feature column names, so they must
// stay exactly as trained.
var PhaseWindows = []Window{
	{Name: "prorastanie", Start: "05-01", End: "05-14"},
	{Name: "vshody", Start: "05-15", End: "05-28"},
	{Name: "veg_faza", Start: "05-29", End: "06-11"},
	{Name: "cvetenie", Start: "06-12", End: "06-25"},
	{Name: "form_bobov", Start: "06-26", End: "07-09"},
	{Name: "sozrevanie", Start: "07-10", End: "07-23"},
	{Name: "ubor_urozhaya", Start: "07-24", End: "09-20"},
}

// Contains reports whether the month-day of the given "MM-DD" string falls
// inside the window.
func (w Window) Contains(monthDay string) bool {
	return monthDay >= w.Start && monthDay <= w.End
}
