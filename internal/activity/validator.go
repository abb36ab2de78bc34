package activity

import (
	"fmt"
	"strings"

	"github.com/aulaplay/aula/internal/domain"
)

const maxHints = 3

// Issue is a single path-qualified validation failure.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// SchemaError reports that a document matched no activity variant. When
// the document's template discriminant named a known variant, Issues
// holds that variant's failures; otherwise it holds the template issue.
type SchemaError struct {
	Template domain.Template `json:"template,omitempty"`
	Issues   []Issue         `json:"issues"`
}

func (e *SchemaError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = fmt.Sprintf("%s: %s", issue.Path, issue.Message)
	}
	return "invalid activity: " + strings.Join(parts, "; ")
}

type issueList struct {
	issues []Issue
}

func (l *issueList) add(path, format string, args ...any) {
	l.issues = append(l.issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (l *issueList) empty() bool { return len(l.issues) == 0 }

// Validate checks a raw document against each known variant in order
// (select-correct, drag-match, memory, robot-grid) and returns the typed
// activity of the first variant that passes both structural and invariant
// checks. Structural failures short-circuit invariant evaluation.
func Validate(doc *Document) (domain.Activity, error) {
	if doc == nil {
		return nil, &SchemaError{Issues: []Issue{{Path: "", Message: "document is empty"}}}
	}

	validators := []struct {
		template domain.Template
		validate func(*Document) (domain.Activity, []Issue)
	}{
		{domain.TemplateSelectCorrect, validateSelectCorrect},
		{domain.TemplateDragMatch, validateDragMatch},
		{domain.TemplateMemory, validateMemory},
		{domain.TemplateRobotGrid, validateRobotGrid},
	}

	for _, v := range validators {
		act, issues := v.validate(doc)
		if len(issues) == 0 {
			return act, nil
		}
		// Report the failures of the variant the document claims to be;
		// mismatched-template rejections from the other variants carry
		// no useful detail.
		if doc.Template == string(v.template) {
			return nil, &SchemaError{Template: v.template, Issues: issues}
		}
	}

	return nil, &SchemaError{Issues: []Issue{{
		Path:    "template",
		Message: fmt.Sprintf("unknown template %q", doc.Template),
	}}}
}

// checkCommon validates the fields shared by all variants.
func checkCommon(doc *Document, issues *issueList) {
	if doc.ID == "" {
		issues.add("id", "is required")
	}
	if doc.Type != "game" {
		issues.add("type", "must be %q", "game")
	}
	if doc.Title == "" {
		issues.add("title", "is required")
	}
	if len(doc.Hints) > maxHints {
		issues.add("hints", "at most %d hints allowed, got %d", maxHints, len(doc.Hints))
	}
}

func buildMeta(doc *Document) domain.ActivityMeta {
	meta := domain.ActivityMeta{
		ID:           doc.ID,
		Title:        doc.Title,
		Instructions: doc.Instructions,
		Hints:        doc.Hints,
	}
	if doc.Feedback != nil {
		meta.Feedback = domain.Feedback{
			Correct:     doc.Feedback.Correct,
			Incorrect:   doc.Feedback.Incorrect,
			PairCorrect: doc.Feedback.PairCorrect,
			Complete:    doc.Feedback.Complete,
		}
	}
	return meta
}

func validateSelectCorrect(doc *Document) (domain.Activity, []Issue) {
	var issues issueList
	if doc.Template != string(domain.TemplateSelectCorrect) {
		issues.add("template", "expected %q", domain.TemplateSelectCorrect)
		return nil, issues.issues
	}

	checkCommon(doc, &issues)
	if doc.Question == "" {
		issues.add("question", "is required")
	}
	if n := len(doc.Choices); n < 2 || n > 9 {
		issues.add("choices", "must have between 2 and 9 entries, got %d", n)
	}
	for i, c := range doc.Choices {
		if c.Label == "" {
			issues.add(fmt.Sprintf("choices[%d].label", i), "is required")
		}
	}
	if doc.CorrectIndex == nil {
		issues.add("correctIndex", "is required")
	} else if *doc.CorrectIndex < 0 {
		issues.add("correctIndex", "must not be negative")
	}
	if !issues.empty() {
		return nil, issues.issues
	}

	// Invariant: the correct answer must exist.
	if *doc.CorrectIndex >= len(doc.Choices) {
		issues.add("correctIndex", "must be less than choices length (%d)", len(doc.Choices))
		return nil, issues.issues
	}

	act := &domain.SelectCorrect{
		ActivityMeta: buildMeta(doc),
		Question:     doc.Question,
		CorrectIndex: *doc.CorrectIndex,
	}
	if doc.Shuffle != nil {
		act.Shuffle = *doc.Shuffle
	}
	act.Choices = make([]domain.Choice, len(doc.Choices))
	for i, c := range doc.Choices {
		act.Choices[i] = domain.Choice{Label: c.Label, Image: c.Image}
	}
	return act, nil
}

func checkEntries(field string, entries []EntryDoc, issues *issueList) {
	if len(entries) == 0 {
		issues.add(field, "must not be empty")
		return
	}
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			issues.add(fmt.Sprintf("%s[%d].id", field, i), "is required")
			continue
		}
		if seen[e.ID] {
			issues.add(fmt.Sprintf("%s[%d].id", field, i), "duplicate id %q", e.ID)
		}
		seen[e.ID] = true
		if e.Key == "" {
			issues.add(fmt.Sprintf("%s[%d].key", field, i), "is required")
		}
	}
}

func validateDragMatch(doc *Document) (domain.Activity, []Issue) {
	var issues issueList
	if doc.Template != string(domain.TemplateDragMatch) {
		issues.add("template", "expected %q", domain.TemplateDragMatch)
		return nil, issues.issues
	}

	checkCommon(doc, &issues)
	checkEntries("items", doc.Items, &issues)
	checkEntries("targets", doc.Targets, &issues)
	if !issues.empty() {
		return nil, issues.issues
	}

	// Invariant: item keys and target keys must form a bijection, i.e.
	// the same multiset on both sides.
	itemKeys := make(map[string]int)
	for _, e := range doc.Items {
		itemKeys[e.Key]++
	}
	targetKeys := make(map[string]int)
	for _, e := range doc.Targets {
		targetKeys[e.Key]++
	}
	if len(doc.Items) != len(doc.Targets) {
		issues.add("targets", "must have as many entries as items (%d != %d)", len(doc.Targets), len(doc.Items))
	} else {
		for key, n := range itemKeys {
			if targetKeys[key] != n {
				issues.add("targets", "key %q appears %d time(s) in items but %d in targets", key, n, targetKeys[key])
			}
		}
	}
	if !issues.empty() {
		return nil, issues.issues
	}

	act := &domain.DragMatch{
		ActivityMeta: buildMeta(doc),
		Rules:        domain.DragMatchRules{Shuffle: true},
	}
	if doc.Rules != nil && doc.Rules.Shuffle != nil {
		act.Rules.Shuffle = *doc.Rules.Shuffle
	}
	act.Items = make([]domain.MatchEntry, len(doc.Items))
	for i, e := range doc.Items {
		act.Items[i] = domain.MatchEntry{ID: e.ID, Key: e.Key, Label: e.Label, Image: e.Image, Audio: e.Audio}
	}
	act.Targets = make([]domain.MatchEntry, len(doc.Targets))
	for i, e := range doc.Targets {
		act.Targets[i] = domain.MatchEntry{ID: e.ID, Key: e.Key, Label: e.Label, Image: e.Image, Audio: e.Audio}
	}
	return act, nil
}

func validateMemory(doc *Document) (domain.Activity, []Issue) {
	var issues issueList
	if doc.Template != string(domain.TemplateMemory) {
		issues.add("template", "expected %q", domain.TemplateMemory)
		return nil, issues.issues
	}

	checkCommon(doc, &issues)
	if n := len(doc.Cards); n < 4 {
		issues.add("cards", "must have at least 4 cards, got %d", n)
	} else if n%2 != 0 {
		issues.add("cards", "must have an even number of cards, got %d", n)
	}
	seen := make(map[string]bool, len(doc.Cards))
	for i, c := range doc.Cards {
		if c.ID == "" {
			issues.add(fmt.Sprintf("cards[%d].id", i), "is required")
			continue
		}
		if seen[c.ID] {
			issues.add(fmt.Sprintf("cards[%d].id", i), "duplicate id %q", c.ID)
		}
		seen[c.ID] = true
		if c.Key == "" {
			issues.add(fmt.Sprintf("cards[%d].key", i), "is required")
		}
	}
	if doc.Rules != nil {
		r := doc.Rules
		if r.PreviewMs != nil && *r.PreviewMs < 0 {
			issues.add("rules.previewMs", "must not be negative")
		}
		if r.TimeLimitSeconds != nil && *r.TimeLimitSeconds < 0 {
			issues.add("rules.timeLimitSeconds", "must not be negative")
		}
		if r.Grid != nil {
			if r.Grid.Rows == nil || *r.Grid.Rows <= 0 {
				issues.add("rules.grid.rows", "must be positive")
			}
			if r.Grid.Cols == nil || *r.Grid.Cols <= 0 {
				issues.add("rules.grid.cols", "must be positive")
			}
		}
		if r.Scoring != nil {
			if r.Scoring.ThreeStarsAttempts != nil && *r.Scoring.ThreeStarsAttempts <= 0 {
				issues.add("rules.scoring.threeStarsAttempts", "must be positive")
			}
			if r.Scoring.TwoStarsAttempts != nil && *r.Scoring.TwoStarsAttempts <= 0 {
				issues.add("rules.scoring.twoStarsAttempts", "must be positive")
			}
		}
	}
	if !issues.empty() {
		return nil, issues.issues
	}

	// Invariant: every key must occur an even number of times, at least
	// twice, so complete matching groups exist.
	keyCount := make(map[string]int)
	for _, c := range doc.Cards {
		keyCount[c.Key]++
	}
	for key, n := range keyCount {
		if n < 2 || n%2 != 0 {
			issues.add("cards", "key %q appears %d time(s); every key needs an even count of at least 2", key, n)
		}
	}
	if !issues.empty() {
		return nil, issues.issues
	}

	act := &domain.Memory{
		ActivityMeta: buildMeta(doc),
		Rules:        domain.MemoryRules{Shuffle: true},
	}
	act.Cards = make([]domain.MemoryCard, len(doc.Cards))
	for i, c := range doc.Cards {
		act.Cards[i] = domain.MemoryCard{
			ID:   c.ID,
			Key:  c.Key,
			Face: domain.CardFace{Label: c.Face.Label, Image: c.Face.Image, Audio: c.Face.Audio},
		}
	}
	if r := doc.Rules; r != nil {
		if r.Shuffle != nil {
			act.Rules.Shuffle = *r.Shuffle
		}
		if r.PreviewMs != nil {
			act.Rules.PreviewMs = *r.PreviewMs
		}
		if r.TimeLimitSeconds != nil {
			act.Rules.TimeLimitSeconds = *r.TimeLimitSeconds
		}
		if r.Grid != nil {
			act.Rules.Grid = &domain.GridSize{Rows: *r.Grid.Rows, Cols: *r.Grid.Cols}
		}
		if r.Scoring != nil {
			thresholds := &domain.StarThresholds{}
			if r.Scoring.ThreeStarsAttempts != nil {
				thresholds.ThreeStarsAttempts = *r.Scoring.ThreeStarsAttempts
			}
			if r.Scoring.TwoStarsAttempts != nil {
				thresholds.TwoStarsAttempts = *r.Scoring.TwoStarsAttempts
			}
			act.Rules.Scoring = thresholds
		}
	}
	return act, nil
}

func checkPosition(field string, p *PosDoc, issues *issueList) {
	if p == nil {
		issues.add(field, "is required")
		return
	}
	if p.R == nil || *p.R < 0 {
		issues.add(field+".r", "must be a non-negative integer")
	}
	if p.C == nil || *p.C < 0 {
		issues.add(field+".c", "must be a non-negative integer")
	}
}

func validateRobotGrid(doc *Document) (domain.Activity, []Issue) {
	var issues issueList
	if doc.Template != string(domain.TemplateRobotGrid) {
		issues.add("template", "expected %q", domain.TemplateRobotGrid)
		return nil, issues.issues
	}

	checkCommon(doc, &issues)
	g := doc.Grid
	if g == nil {
		issues.add("grid", "is required")
		return nil, issues.issues
	}
	if g.Rows == nil || *g.Rows < 3 || *g.Rows > 20 {
		issues.add("grid.rows", "must be between 3 and 20")
	}
	if g.Cols == nil || *g.Cols < 3 || *g.Cols > 20 {
		issues.add("grid.cols", "must be between 3 and 20")
	}
	if g.Start == nil {
		issues.add("grid.start", "is required")
	} else {
		if g.Start.R == nil || *g.Start.R < 0 {
			issues.add("grid.start.r", "must be a non-negative integer")
		}
		if g.Start.C == nil || *g.Start.C < 0 {
			issues.add("grid.start.c", "must be a non-negative integer")
		}
		switch domain.Direction(g.Start.Dir) {
		case domain.DirNorth, domain.DirEast, domain.DirSouth, domain.DirWest:
		default:
			issues.add("grid.start.dir", "must be one of N, E, S, W")
		}
	}
	checkPosition("grid.goal", g.Goal, &issues)
	for i := range g.Walls {
		checkPosition(fmt.Sprintf("grid.walls[%d]", i), &g.Walls[i], &issues)
	}
	for i := range g.Coins {
		checkPosition(fmt.Sprintf("grid.coins[%d]", i), &g.Coins[i], &issues)
	}
	if len(doc.Toolbox) == 0 {
		issues.add("toolbox", "must not be empty")
	}
	for i, cmd := range doc.Toolbox {
		if !domain.KnownCommand(domain.Command(cmd)) {
			issues.add(fmt.Sprintf("toolbox[%d]", i), "unknown command %q", cmd)
		}
	}
	if doc.Rules != nil && doc.Rules.MaxSteps != nil && *doc.Rules.MaxSteps < 1 {
		issues.add("rules.maxSteps", "must be at least 1")
	}
	if doc.SuccessCriteria != nil && doc.SuccessCriteria.MaxSteps != nil && *doc.SuccessCriteria.MaxSteps < 1 {
		issues.add("successCriteria.maxSteps", "must be at least 1")
	}
	if !issues.empty() {
		return nil, issues.issues
	}

	// Invariant: start and goal lie within the grid.
	rows, cols := *g.Rows, *g.Cols
	if *g.Start.R >= rows || *g.Start.C >= cols {
		issues.add("grid.start", "must lie within the %dx%d grid", rows, cols)
	}
	if *g.Goal.R >= rows || *g.Goal.C >= cols {
		issues.add("grid.goal", "must lie within the %dx%d grid", rows, cols)
	}
	if !issues.empty() {
		return nil, issues.issues
	}

	act := &domain.RobotGrid{
		ActivityMeta: buildMeta(doc),
		Grid: domain.Grid{
			Rows: rows,
			Cols: cols,
			Start: domain.StartPosition{
				Position: domain.Position{R: *g.Start.R, C: *g.Start.C},
				Dir:      domain.Direction(g.Start.Dir),
			},
			Goal: domain.Position{R: *g.Goal.R, C: *g.Goal.C},
		},
		SuccessCriteria: domain.SuccessCriteria{ReachGoal: true},
	}
	for _, w := range g.Walls {
		act.Grid.Walls = append(act.Grid.Walls, domain.Position{R: *w.R, C: *w.C})
	}
	for _, c := range g.Coins {
		act.Grid.Coins = append(act.Grid.Coins, domain.Position{R: *c.R, C: *c.C})
	}
	for _, cell := range g.Colored {
		if cell.R == nil || cell.C == nil {
			continue
		}
		act.Grid.Colored = append(act.Grid.Colored, domain.ColoredCell{
			Position: domain.Position{R: *cell.R, C: *cell.C},
			Color:    cell.Color,
		})
	}
	act.Toolbox = make([]domain.Command, len(doc.Toolbox))
	for i, cmd := range doc.Toolbox {
		act.Toolbox[i] = domain.Command(cmd)
	}
	if doc.Rules != nil {
		if doc.Rules.MaxSteps != nil {
			act.Rules.MaxSteps = *doc.Rules.MaxSteps
		}
		if doc.Rules.AllowStepMode != nil {
			act.Rules.AllowStepMode = *doc.Rules.AllowStepMode
		}
	}
	if sc := doc.SuccessCriteria; sc != nil {
		if sc.ReachGoal != nil {
			act.SuccessCriteria.ReachGoal = *sc.ReachGoal
		}
		if sc.CollectAllCoins != nil {
			act.SuccessCriteria.CollectAllCoins = *sc.CollectAllCoins
		}
		if sc.MaxSteps != nil {
			act.SuccessCriteria.MaxSteps = *sc.MaxSteps
		}
	}
	return act, nil
}
