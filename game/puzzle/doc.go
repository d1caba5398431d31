// Package puzzle implements the sliding tile game ("Пятнашки").
//
// A board starts solved; Shuffle walks the empty slot randomly so the result
// is always solvable. The timer starts on the first tile click and stops when
// the board is solved again.
//
// Usage:
//
//	p, _ := puzzle.New(4, nil)
//	p.Shuffle(puzzle.DefaultShuffleSteps)
//	p.MoveTile(11)
//	fmt.Println(p.ShareText())
package puzzle
