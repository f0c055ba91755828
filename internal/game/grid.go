package game

// Grid хранит клетки построчно, строка 0 - верхняя.
// фишка всегда падает на самую нижнюю свободную клетку столбца
type Grid [Rows * Columns]Color

func (g *Grid) At(row, col int) Color {
	return g[row*Columns+col]
}

// Insert бросает фишку в столбец. false - столбец полон или вне диапазона, доска не меняется
func (g *Grid) Insert(c Color, column int) bool {
	if column < 0 || column >= Columns || c == Empty {
		return false
	}
	for row := Rows - 1; row >= 0; row-- {
		idx := row*Columns + column
		if g[idx] == Empty {
			g[idx] = c
			return true
		}
	}
	return false
}

// Height - сколько фишек уже лежит в столбце
func (g *Grid) Height(column int) int {
	h := 0
	for row := Rows - 1; row >= 0; row-- {
		if g.At(row, column) == Empty {
			break
		}
		h++
	}
	return h
}

func (g *Grid) Full() bool {
	for _, c := range g {
		if c == Empty {
			return false
		}
	}
	return true
}

// Pieces - число фишек на доске
func (g *Grid) Pieces() int {
	n := 0
	for _, c := range g {
		if c != Empty {
			n++
		}
	}
	return n
}

// направления: горизонталь, вертикаль, диагонали \ и /
var directions = [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}

// Evaluate сначала ищет линию из четырех, потом проверяет ничью.
// так полная доска, заполненная выигрышным ходом, засчитывается как победа
func (g *Grid) Evaluate() Outcome {
	for row := 0; row < Rows; row++ {
		for col := 0; col < Columns; col++ {
			c := g.At(row, col)
			if c == Empty {
				continue
			}
			for _, d := range directions {
				if g.lineFrom(row, col, d[0], d[1], c) {
					return winFor(c)
				}
			}
		}
	}
	if g.Full() {
		return Tie
	}
	return Continuing
}

func (g *Grid) lineFrom(row, col, dr, dc int, c Color) bool {
	endRow, endCol := row+dr*(lineLength-1), col+dc*(lineLength-1)
	if endRow < 0 || endRow >= Rows || endCol < 0 || endCol >= Columns {
		return false
	}
	for i := 1; i < lineLength; i++ {
		if g.At(row+dr*i, col+dc*i) != c {
			return false
		}
	}
	return true
}
