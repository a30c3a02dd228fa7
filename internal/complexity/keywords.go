package complexity

// Keywords holds the indicator lists the classifier matches against.
// Entries are lower-case; a keyword counts once no matter how often it appears.
type Keywords struct {
	Complex []string
	Simple  []string
}

// DefaultKeywords returns the built-in indicator lists.
func DefaultKeywords() Keywords {
	return Keywords{
		Complex: []string{
			"architecture",
			"microservice",
			"distributed",
			"infrastructure",
			"kubernetes",
			"deployment",
			"pipeline",
			"workflow",
			"state machine",
			"sequence",
			"integration",
			"multiple",
			"detailed",
			"comprehensive",
			"enterprise",
			"layers",
			"interactions",
			"database",
			"network",
			"swimlane",
		},
		Simple: []string{
			"simple",
			"basic",
			"quick",
			"small",
			"minimal",
			"single",
			"tiny",
			"just a",
			"only one",
			"hello world",
		},
	}
}
