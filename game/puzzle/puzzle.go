package puzzle

import (
	"fmt"
	"math/rand/v2"
	"time"
)

const (
	// GameName identifies puzzle results
	GameName = "15-puzzle"

	DefaultSize         = 4
	MinSize             = 3
	MaxSize             = 6
	DefaultShuffleSteps = 1000
)

// Source picks a uniform integer in [0, n). *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// Puzzle is a sliding tile board. Tiles holds the board in reading order;
// 0 marks the empty slot.
type Puzzle struct {
	Size       int       `json:"size"`
	Tiles      []int     `json:"tiles"`
	Moves      int       `json:"moves"`
	Won        bool      `json:"won"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`

	src Source
	// Now is the puzzle clock; tests replace it.
	Now func() time.Time `json:"-"`
}

// Result is the payload a finished game reports to the chat and the web view
type Result struct {
	Moves int    `json:"moves"`
	Time  int    `json:"time"`
	Game  string `json:"game"`
}

// New creates a solved size x size board. A nil src uses the global generator.
func New(size int, src Source) (*Puzzle, error) {
	if size == 0 {
		size = DefaultSize
	}
	if size < MinSize || size > MaxSize {
		return nil, fmt.Errorf("puzzle size must be between %d and %d, got %d", MinSize, MaxSize, size)
	}
	if src == nil {
		src = globalSource{}
	}

	p := &Puzzle{Size: size, src: src, Now: time.Now}
	p.Reset()
	return p, nil
}

// Reset restores the solved board and zeroes the counters
func (p *Puzzle) Reset() {
	n := p.Size * p.Size
	p.Tiles = make([]int, n)
	for i := 0; i < n-1; i++ {
		p.Tiles[i] = i + 1
	}
	p.Tiles[n-1] = 0
	p.Moves = 0
	p.Won = false
	p.StartedAt = time.Time{}
	p.FinishedAt = time.Time{}
}

// Shuffle resets the board and walks the empty slot steps times to a random
// neighbour, so every shuffled board stays solvable.
func (p *Puzzle) Shuffle(steps int) {
	if steps <= 0 {
		steps = DefaultShuffleSteps
	}
	p.Reset()

	// A walk can return to the solved board; walk again a bounded number of times.
	for attempt := 0; attempt < 8; attempt++ {
		for i := 0; i < steps; i++ {
			empty := p.EmptyIndex()
			neighbors := p.neighbors(empty)
			next := neighbors[p.src.IntN(len(neighbors))]
			p.Tiles[empty], p.Tiles[next] = p.Tiles[next], p.Tiles[empty]
		}
		if !p.IsSolved() {
			return
		}
	}
}

// MoveTile slides the tile at index into the empty slot when they are
// orthogonally adjacent. The first click on a tile starts the timer even
// when the move itself is ignored. Clicks on the empty slot do nothing.
func (p *Puzzle) MoveTile(index int) bool {
	if p.Won || index < 0 || index >= len(p.Tiles) {
		return false
	}
	empty := p.EmptyIndex()
	if index == empty {
		return false
	}
	if p.StartedAt.IsZero() {
		p.StartedAt = p.Now()
	}

	if !p.IsAdjacent(index, empty) {
		return false
	}

	p.Tiles[index], p.Tiles[empty] = p.Tiles[empty], p.Tiles[index]
	p.Moves++

	if p.IsSolved() {
		p.Won = true
		p.FinishedAt = p.Now()
	}
	return true
}

// EmptyIndex returns the index of the empty slot
func (p *Puzzle) EmptyIndex() int {
	for i, v := range p.Tiles {
		if v == 0 {
			return i
		}
	}
	return -1
}

// IsAdjacent reports whether two indexes share an edge
func (p *Puzzle) IsAdjacent(a, b int) bool {
	ar, ac := a/p.Size, a%p.Size
	br, bc := b/p.Size, b%p.Size
	return abs(ar-br)+abs(ac-bc) == 1
}

// IsSolved reports whether tiles 1..n-1 are in reading order
func (p *Puzzle) IsSolved() bool {
	last := len(p.Tiles) - 1
	for i := 0; i < last; i++ {
		if p.Tiles[i] != i+1 {
			return false
		}
	}
	return p.Tiles[last] == 0
}

// Elapsed returns the played time: zero before the first click and frozen after a win
func (p *Puzzle) Elapsed() time.Duration {
	if p.StartedAt.IsZero() {
		return 0
	}
	if !p.FinishedAt.IsZero() {
		return p.FinishedAt.Sub(p.StartedAt)
	}
	return p.Now().Sub(p.StartedAt)
}

// Result returns the reportable outcome of the current board
func (p *Puzzle) Result() Result {
	return Result{
		Moves: p.Moves,
		Time:  int(p.Elapsed() / time.Second),
		Game:  GameName,
	}
}

// ShareText returns the brag line sent to the chat
func (p *Puzzle) ShareText() string {
	return fmt.Sprintf("🎉 Я собрал головоломку \"Пятнашки\" за %d ходов и %s времени!", p.Moves, FormatElapsed(p.Elapsed()))
}

// Clone returns an independent copy of the board
func (p *Puzzle) Clone() *Puzzle {
	c := *p
	c.Tiles = append([]int(nil), p.Tiles...)
	return &c
}

func (p *Puzzle) neighbors(index int) []int {
	row, col := index/p.Size, index%p.Size
	out := make([]int, 0, 4)
	if row > 0 {
		out = append(out, index-p.Size)
	}
	if row < p.Size-1 {
		out = append(out, index+p.Size)
	}
	if col > 0 {
		out = append(out, index-1)
	}
	if col < p.Size-1 {
		out = append(out, index+1)
	}
	return out
}

// FormatElapsed renders d as mm:ss
func FormatElapsed(d time.Duration) string {
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
