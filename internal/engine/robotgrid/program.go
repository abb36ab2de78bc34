package robotgrid

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/aulaplay/aula/internal/domain"
)

const (
	minRepeatCount     = 1
	maxRepeatCount     = 9
	defaultRepeatCount = 2
)

// Block is one placed command in the authored program. Only container
// commands (REPEAT / IF_*) may hold children.
type Block struct {
	ID       string
	Cmd      domain.Command
	Count    int // REPEAT only, within [1,9]
	Children []*Block
}

// Program is the user's authored block sequence. It survives a robot
// Reset; only Clear removes blocks.
type Program struct {
	blocks []*Block
}

// NewProgram returns an empty program.
func NewProgram() *Program { return &Program{} }

func newBlock(cmd domain.Command) *Block {
	b := &Block{ID: uuid.NewString(), Cmd: cmd}
	if cmd == domain.CmdRepeat {
		b.Count = defaultRepeatCount
	}
	return b
}

// Append places a new top-level block and returns it.
func (p *Program) Append(cmd domain.Command) (*Block, error) {
	if !domain.KnownCommand(cmd) {
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
	b := newBlock(cmd)
	p.blocks = append(p.blocks, b)
	return b, nil
}

// AppendChild places a new block inside the container with parentID.
func (p *Program) AppendChild(parentID string, cmd domain.Command) (*Block, error) {
	if !domain.KnownCommand(cmd) {
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
	parent := p.find(parentID)
	if parent == nil {
		return nil, fmt.Errorf("no block with id %s", parentID)
	}
	if !parent.Cmd.HasChildren() {
		return nil, fmt.Errorf("%s blocks cannot hold children", parent.Cmd)
	}
	b := newBlock(cmd)
	parent.Children = append(parent.Children, b)
	return b, nil
}

// SetRepeatCount updates a REPEAT block's count, clamped to [1,9].
func (p *Program) SetRepeatCount(id string, count int) error {
	b := p.find(id)
	if b == nil {
		return fmt.Errorf("no block with id %s", id)
	}
	if b.Cmd != domain.CmdRepeat {
		return fmt.Errorf("block %s is not a repeat", id)
	}
	if count < minRepeatCount {
		count = minRepeatCount
	}
	if count > maxRepeatCount {
		count = maxRepeatCount
	}
	b.Count = count
	return nil
}

// Remove deletes the block with the given id, wherever it sits.
func (p *Program) Remove(id string) error {
	if removed := removeFrom(&p.blocks, id); !removed {
		return fmt.Errorf("no block with id %s", id)
	}
	return nil
}

func removeFrom(blocks *[]*Block, id string) bool {
	for i, b := range *blocks {
		if b.ID == id {
			*blocks = append((*blocks)[:i], (*blocks)[i+1:]...)
			return true
		}
		if removeFrom(&b.Children, id) {
			return true
		}
	}
	return false
}

// Clear removes every block.
func (p *Program) Clear() { p.blocks = nil }

func (p *Program) find(id string) *Block {
	return findIn(p.blocks, id)
}

func findIn(blocks []*Block, id string) *Block {
	for _, b := range blocks {
		if b.ID == id {
			return b
		}
		if found := findIn(b.Children, id); found != nil {
			return found
		}
	}
	return nil
}

// Blocks returns the top-level block list.
func (p *Program) Blocks() []*Block { return p.blocks }

// Len counts every block, containers and children included.
func (p *Program) Len() int { return countBlocks(p.blocks) }

func countBlocks(blocks []*Block) int {
	n := 0
	for _, b := range blocks {
		n += 1 + countBlocks(b.Children)
	}
	return n
}
