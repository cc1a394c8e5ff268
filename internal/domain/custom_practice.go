package domain

// CustomPracticeSelection names one topic/subskill/structure the user wants
// practice on. Ephemeral; never persisted beyond assembly.
type CustomPracticeSelection struct {
	Topic     string `json:"topic"`
	Subskill  string `json:"subskill"`
	Structure string `json:"structure"`
}

// PlanItem is a generation request for Count questions of one difficulty tier
// within one selection.
type PlanItem struct {
	Topic      string `json:"topic"`
	Subskill   string `json:"subskill"`
	Structure  string `json:"structure"`
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
}
