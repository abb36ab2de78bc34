package domain

// Template identifies which game engine an activity is played with.
type Template string

const (
	TemplateSelectCorrect Template = "select-correct"
	TemplateDragMatch     Template = "drag-match"
	TemplateMemory        Template = "memory"
	TemplateRobotGrid     Template = "robot-grid"
)

// Templates lists all known activity templates in validation order.
func Templates() []Template {
	return []Template{TemplateSelectCorrect, TemplateDragMatch, TemplateMemory, TemplateRobotGrid}
}

// Activity is the closed set of playable activity variants. An activity is
// an immutable configuration document: it is created once by the validator
// and never mutated afterwards.
type Activity interface {
	Meta() ActivityMeta
	Template() Template
}

// ActivityMeta holds the fields common to every activity variant.
type ActivityMeta struct {
	ID           string
	Title        string
	Instructions string
	Hints        []string // up to 3, ordered
	Feedback     Feedback
}

// Meta implements Activity for every variant embedding ActivityMeta.
func (m ActivityMeta) Meta() ActivityMeta { return m }

// Choice is one selectable answer in a select-correct activity.
type Choice struct {
	Label string
	Image string
}

// SelectCorrect asks a single question with 2-9 choices, exactly one correct.
type SelectCorrect struct {
	ActivityMeta
	Question     string
	Choices      []Choice
	CorrectIndex int
	Shuffle      bool
}

func (*SelectCorrect) Template() Template { return TemplateSelectCorrect }

// MatchEntry is one draggable item or one drop target. Items and targets
// pair up by Key, never by position.
type MatchEntry struct {
	ID    string
	Key   string
	Label string
	Image string
	Audio string
}

// DragMatchRules configures drag-match behavior.
type DragMatchRules struct {
	Shuffle bool
}

// DragMatch pairs a pool of items onto targets by matching keys. The
// validator guarantees a bijection by key exists between the two sides.
type DragMatch struct {
	ActivityMeta
	Items   []MatchEntry
	Targets []MatchEntry
	Rules   DragMatchRules
}

func (*DragMatch) Template() Template { return TemplateDragMatch }

// CardFace is the revealed side of a memory card.
type CardFace struct {
	Label string
	Image string
	Audio string
}

// MemoryCard is one card in a memory activity. Cards sharing a Key form
// a matching group.
type MemoryCard struct {
	ID   string
	Key  string
	Face CardFace
}

// GridSize gives explicit board dimensions for the memory layout.
type GridSize struct {
	Rows int
	Cols int
}

// StarThresholds maps total attempt counts to a star rating. A zero value
// means the tier is not configured and cannot be earned.
type StarThresholds struct {
	ThreeStarsAttempts int
	TwoStarsAttempts   int
}

// MemoryRules configures memory-match behavior.
type MemoryRules struct {
	Shuffle          bool
	PreviewMs        int
	TimeLimitSeconds int
	Grid             *GridSize
	Scoring          *StarThresholds
}

// Memory is the flip-two-cards matching game. The validator guarantees an
// even card count and that every key occurs an even number of times, at
// least twice.
type Memory struct {
	ActivityMeta
	Cards []MemoryCard
	Rules MemoryRules
}

func (*Memory) Template() Template { return TemplateMemory }

// Direction is a compass facing on the robot grid.
type Direction string

const (
	DirNorth Direction = "N"
	DirEast  Direction = "E"
	DirSouth Direction = "S"
	DirWest  Direction = "W"
)

// Position is a cell coordinate, row-major from the top-left corner.
type Position struct {
	R int
	C int
}

// StartPosition is the robot's initial cell and facing.
type StartPosition struct {
	Position
	Dir Direction
}

// ColoredCell decorates a grid cell; purely cosmetic.
type ColoredCell struct {
	Position
	Color string
}

// Grid describes the robot's world. The validator guarantees start and
// goal lie within [0,Rows) x [0,Cols).
type Grid struct {
	Rows    int
	Cols    int
	Start   StartPosition
	Goal    Position
	Walls   []Position
	Coins   []Position
	Colored []ColoredCell
}

// Command is one block in the robot programming vocabulary.
type Command string

const (
	CmdMoveForward Command = "MOVE_FORWARD"
	CmdTurnLeft    Command = "TURN_LEFT"
	CmdTurnRight   Command = "TURN_RIGHT"
	CmdRepeat      Command = "REPEAT"
	CmdIfPathAhead Command = "IF_PATH_AHEAD"
	CmdIfCoinHere  Command = "IF_COIN_HERE"
)

// KnownCommand reports whether cmd is part of the block vocabulary.
func KnownCommand(cmd Command) bool {
	switch cmd {
	case CmdMoveForward, CmdTurnLeft, CmdTurnRight, CmdRepeat, CmdIfPathAhead, CmdIfCoinHere:
		return true
	}
	return false
}

// HasChildren reports whether cmd is a container block (REPEAT / IF_*).
func (c Command) HasChildren() bool {
	return c == CmdRepeat || c == CmdIfPathAhead || c == CmdIfCoinHere
}

// RobotRules configures robot-grid execution.
type RobotRules struct {
	MaxSteps      int
	AllowStepMode bool
}

// SuccessCriteria decides whether a clean robot run counts as a win.
type SuccessCriteria struct {
	ReachGoal       bool
	CollectAllCoins bool
	MaxSteps        int // 0 means unlimited
}

// RobotGrid is the block-programming puzzle.
type RobotGrid struct {
	ActivityMeta
	Grid            Grid
	Toolbox         []Command
	Rules           RobotRules
	SuccessCriteria SuccessCriteria
}

func (*RobotGrid) Template() Template { return TemplateRobotGrid }
