package game

// DefaultLength is the number of segments a fresh snake keeps.
const DefaultLength = 2

// Snake is an ordered body (head first), a direction and a target length.
//
// The body is a ring buffer so pushing a new head and dropping the tail are
// both O(1). A Snake is owned by a single goroutine; it is not safe for
// concurrent use.
type Snake struct {
	ring      []Point
	start     int // index of the head in ring
	size      int
	length    int
	direction Direction
}

func NewSnake() *Snake {
	return &Snake{length: DefaultLength, ring: make([]Point, 8)}
}

// SetHead seeds the head of an empty body.
func (s *Snake) SetHead(p Point) {
	if s.size != 0 {
		panic("snake: SetHead on non-empty body")
	}
	s.pushFront(p)
}

// Move pushes a new head one step in the current direction and trims the
// tail down to the target length. Moving an empty snake is an ordering bug
// in the caller and panics.
func (s *Snake) Move() {
	if s.size == 0 {
		panic("snake: Move on empty body")
	}
	s.pushFront(s.Head().Add(s.direction))
	for s.size > s.length {
		s.size--
	}
}

// Grow extends the target length by one. The body itself only changes on
// the next Move.
func (s *Snake) Grow() {
	s.length++
}

// ChangeDirection turns the snake unless d would reverse it onto its neck,
// in which case the request is ignored.
func (s *Snake) ChangeDirection(d Direction) {
	if d == s.direction.Opposite() {
		return
	}
	s.direction = d
}

// SetDirection sets the direction without the reversal filter. It is only
// meant for seeding a new run.
func (s *Snake) SetDirection(d Direction) {
	s.direction = d
}

func (s *Snake) Direction() Direction { return s.direction }
func (s *Snake) Length() int          { return s.length }
func (s *Snake) Len() int             { return s.size }

// Head returns the most recently pushed point.
func (s *Snake) Head() Point {
	if s.size == 0 {
		panic("snake: Head on empty body")
	}
	return s.ring[s.start]
}

// Body returns a head-first copy of the segments.
func (s *Snake) Body() []Point {
	out := make([]Point, s.size)
	for i := 0; i < s.size; i++ {
		out[i] = s.at(i)
	}
	return out
}

// Occupies reports whether any segment sits on p.
func (s *Snake) Occupies(p Point) bool {
	for i := 0; i < s.size; i++ {
		if s.at(i) == p {
			return true
		}
	}
	return false
}

// HitsSelf reports whether the head coincides with any other segment.
func (s *Snake) HitsSelf() bool {
	if s.size < 2 {
		return false
	}
	head := s.ring[s.start]
	for i := 1; i < s.size; i++ {
		if s.at(i) == head {
			return true
		}
	}
	return false
}

// Reset empties the body and restores the default length.
func (s *Snake) Reset() {
	s.start = 0
	s.size = 0
	s.length = DefaultLength
}

func (s *Snake) at(i int) Point {
	return s.ring[(s.start+i)%len(s.ring)]
}

func (s *Snake) pushFront(p Point) {
	if s.size == len(s.ring) {
		s.grow()
	}
	s.start = (s.start - 1 + len(s.ring)) % len(s.ring)
	s.ring[s.start] = p
	s.size++
}

func (s *Snake) grow() {
	n := len(s.ring) * 2
	if n == 0 {
		n = 8
	}
	next := make([]Point, n)
	for i := 0; i < s.size; i++ {
		next[i] = s.at(i)
	}
	s.ring = next
	s.start = 0
}
