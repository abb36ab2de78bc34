package activity

// Document is the raw, untyped shape of an activity file before
// validation. It is a superset of every template's fields; the validator
// decides which variant the document is and builds the typed Activity.
// Optional scalars whose presence matters are pointers so "absent" and
// "zero" stay distinguishable.
type Document struct {
	ID           string       `yaml:"id" json:"id"`
	Type         string       `yaml:"type" json:"type"`
	Template     string       `yaml:"template" json:"template"`
	Title        string       `yaml:"title" json:"title"`
	Instructions string       `yaml:"instructions" json:"instructions"`
	Hints        []string     `yaml:"hints" json:"hints"`
	Feedback     *FeedbackDoc `yaml:"feedback" json:"feedback"`

	// select-correct
	Question     string      `yaml:"question" json:"question"`
	Choices      []ChoiceDoc `yaml:"choices" json:"choices"`
	CorrectIndex *int        `yaml:"correctIndex" json:"correctIndex"`
	Shuffle      *bool       `yaml:"shuffle" json:"shuffle"`

	// drag-match
	Items   []EntryDoc `yaml:"items" json:"items"`
	Targets []EntryDoc `yaml:"targets" json:"targets"`

	// memory
	Cards []CardDoc `yaml:"cards" json:"cards"`

	// shared rules bag (drag-match, memory, robot-grid)
	Rules *RulesDoc `yaml:"rules" json:"rules"`

	// robot-grid
	Grid            *GridDoc     `yaml:"grid" json:"grid"`
	Toolbox         []string     `yaml:"toolbox" json:"toolbox"`
	SuccessCriteria *CriteriaDoc `yaml:"successCriteria" json:"successCriteria"`
}

// FeedbackDoc holds authored feedback message variants.
type FeedbackDoc struct {
	Correct     []string `yaml:"correct" json:"correct"`
	Incorrect   []string `yaml:"incorrect" json:"incorrect"`
	PairCorrect []string `yaml:"pairCorrect" json:"pairCorrect"`
	Complete    []string `yaml:"complete" json:"complete"`
}

// ChoiceDoc is one select-correct answer option.
type ChoiceDoc struct {
	Label string `yaml:"label" json:"label"`
	Image string `yaml:"image" json:"image"`
}

// EntryDoc is one drag-match item or target.
type EntryDoc struct {
	ID    string `yaml:"id" json:"id"`
	Key   string `yaml:"key" json:"key"`
	Label string `yaml:"label" json:"label"`
	Image string `yaml:"image" json:"image"`
	Audio string `yaml:"audio" json:"audio"`
}

// CardDoc is one memory card.
type CardDoc struct {
	ID   string      `yaml:"id" json:"id"`
	Key  string      `yaml:"key" json:"key"`
	Face CardFaceDoc `yaml:"face" json:"face"`
}

// CardFaceDoc is the revealed side of a memory card.
type CardFaceDoc struct {
	Label string `yaml:"label" json:"label"`
	Image string `yaml:"image" json:"image"`
	Audio string `yaml:"audio" json:"audio"`
}

// RulesDoc merges the per-template rules objects.
type RulesDoc struct {
	// drag-match
	MaxAttempts       *int  `yaml:"maxAttempts" json:"maxAttempts"`
	Shuffle           *bool `yaml:"shuffle" json:"shuffle"`
	AllowPartialCheck *bool `yaml:"allowPartialCheck" json:"allowPartialCheck"`

	// memory
	PreviewMs        *int        `yaml:"previewMs" json:"previewMs"`
	TimeLimitSeconds *int        `yaml:"timeLimitSeconds" json:"timeLimitSeconds"`
	Grid             *SizeDoc    `yaml:"grid" json:"grid"`
	Scoring          *ScoringDoc `yaml:"scoring" json:"scoring"`

	// robot-grid
	MaxSteps      *int  `yaml:"maxSteps" json:"maxSteps"`
	AllowStepMode *bool `yaml:"allowStepMode" json:"allowStepMode"`
}

// SizeDoc is an explicit memory board layout.
type SizeDoc struct {
	Rows *int `yaml:"rows" json:"rows"`
	Cols *int `yaml:"cols" json:"cols"`
}

// ScoringDoc holds star-rating thresholds.
type ScoringDoc struct {
	ThreeStarsAttempts *int `yaml:"threeStarsAttempts" json:"threeStarsAttempts"`
	TwoStarsAttempts   *int `yaml:"twoStarsAttempts" json:"twoStarsAttempts"`
}

// PosDoc is a grid coordinate.
type PosDoc struct {
	R *int `yaml:"r" json:"r"`
	C *int `yaml:"c" json:"c"`
}

// StartDoc is the robot's starting cell plus facing.
type StartDoc struct {
	R   *int   `yaml:"r" json:"r"`
	C   *int   `yaml:"c" json:"c"`
	Dir string `yaml:"dir" json:"dir"`
}

// ColoredDoc is a decorated grid cell.
type ColoredDoc struct {
	R     *int   `yaml:"r" json:"r"`
	C     *int   `yaml:"c" json:"c"`
	Color string `yaml:"color" json:"color"`
}

// GridDoc is the robot world definition.
type GridDoc struct {
	Rows    *int         `yaml:"rows" json:"rows"`
	Cols    *int         `yaml:"cols" json:"cols"`
	Start   *StartDoc    `yaml:"start" json:"start"`
	Goal    *PosDoc      `yaml:"goal" json:"goal"`
	Walls   []PosDoc     `yaml:"walls" json:"walls"`
	Coins   []PosDoc     `yaml:"coins" json:"coins"`
	Colored []ColoredDoc `yaml:"colored" json:"colored"`
}

// CriteriaDoc is the robot success criteria object.
type CriteriaDoc struct {
	ReachGoal       *bool `yaml:"reachGoal" json:"reachGoal"`
	CollectAllCoins *bool `yaml:"collectAllCoins" json:"collectAllCoins"`
	MaxSteps        *int  `yaml:"maxSteps" json:"maxSteps"`
}
